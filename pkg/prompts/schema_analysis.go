// Package prompts builds the role-specific instruction text sent to the
// models.
package prompts

import (
	"fmt"
	"strings"
)

// SchemaAnalysisSystem is the system message for the schema analysis role.
const SchemaAnalysisSystem = "You are an expert data analyst. Respond only with valid JSON, no markdown."

// BuildSchemaAnalysisPrompt creates the prompt asking the model to classify
// each column's semantic type and quality issues from a small sample.
func BuildSchemaAnalysisPrompt(columns []string, sample string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a specialist in data analysis and cleaning. Analyze the data sample below and identify:\n\n")
	prompt.WriteString("1. The likely semantic type of each column\n")
	prompt.WriteString("2. Data quality problems found (inconsistent formats, missing values, likely duplicates)\n")
	prompt.WriteString("3. A standardization suggestion for each column\n\n")

	prompt.WriteString(fmt.Sprintf("COLUMNS: %s\n\n", strings.Join(columns, ", ")))
	prompt.WriteString("DATA SAMPLE:\n")
	prompt.WriteString(sample)
	prompt.WriteString("\n\n")

	prompt.WriteString("The inferred_type of each column MUST be one of: ")
	prompt.WriteString("date, identifier-document, phone, email, name, city, numeric, text, unknown.\n")
	prompt.WriteString("Use the column names EXACTLY as given, including case and spacing.\n\n")

	prompt.WriteString("Respond ONLY with a valid JSON object in the following shape (no markdown, no explanations):\n")
	prompt.WriteString(`{
    "column_name": {
        "inferred_type": "one of the allowed types",
        "detected_issues": ["list of problems found"],
        "cleaning_suggestion": "how to standardize/clean"
    }
}
`)

	return prompt.String()
}
