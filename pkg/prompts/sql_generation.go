package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dataclinic-ai/engine/pkg/models"
)

// SQLGenerationSystem is the system message for the SQL generation role.
const SQLGenerationSystem = "You are a senior data engineer. Explain your reasoning before writing the SQL."

// SQLRepairSystem is the system message for correction retries.
const SQLRepairSystem = "You are a SQL debugging specialist. Be direct and fix the error."

// BuildSQLGenerationPrompt creates the prompt asking the model to produce a
// cleaning script that reads raw_data and materializes clean_data.
func BuildSQLGenerationPrompt(diagnosis models.SchemaDiagnosis, columns []string, sample string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a data engineer specialized in SQL. Based on the analysis below, write SQL for SQLite that:\n\n")
	prompt.WriteString("1. Reads from the existing table 'raw_data'\n")
	prompt.WriteString("2. Applies the necessary cleaning transformations\n")
	prompt.WriteString("3. Inserts the cleaned rows into a new table 'clean_data'\n\n")

	prompt.WriteString("COLUMN ANALYSIS:\n")
	analysisJSON, err := json.MarshalIndent(diagnosis, "", "  ")
	if err == nil {
		prompt.Write(analysisJSON)
	}
	prompt.WriteString("\n\n")

	prompt.WriteString(fmt.Sprintf("ORIGINAL COLUMNS: %s\n\n", strings.Join(columns, ", ")))
	prompt.WriteString("DATA SAMPLE:\n")
	prompt.WriteString(sample)
	prompt.WriteString("\n\n")

	prompt.WriteString("IMPORTANT RULES:\n")
	prompt.WriteString("- Use valid SQLite syntax\n")
	prompt.WriteString("- Create the 'clean_data' table before inserting (CREATE TABLE IF NOT EXISTS)\n")
	prompt.WriteString("- Standardize dates to ISO format (YYYY-MM-DD)\n")
	prompt.WriteString("- Remove extra whitespace with TRIM()\n")
	prompt.WriteString("- Identifier documents must keep digits only\n")
	prompt.WriteString("- Phone numbers must keep digits only\n")
	prompt.WriteString("- Use COALESCE to handle NULLs where appropriate\n")
	prompt.WriteString("- Normalize text casing where it makes sense\n\n")

	prompt.WriteString("Respond with:\n")
	prompt.WriteString("1. First, your reasoning about the transformations\n")
	prompt.WriteString("2. Then, the complete SQL between ```sql and ```\n")

	return prompt.String()
}

// BuildSQLRepairPrompt creates the correction prompt: it carries the prior
// script and the classified execution error, instructing the model to repair
// rather than restart from scratch.
func BuildSQLRepairPrompt(priorSQL string, errorKind models.ExecutionErrorKind, errorMessage string, columns []string) string {
	var prompt strings.Builder

	prompt.WriteString("The SQL below failed when executed against SQLite. Fix the problem.\n\n")

	prompt.WriteString("ORIGINAL SQL:\n```sql\n")
	prompt.WriteString(priorSQL)
	prompt.WriteString("\n```\n\n")

	prompt.WriteString(fmt.Sprintf("ERROR (%s):\n%s\n\n", errorKind, errorMessage))
	prompt.WriteString(fmt.Sprintf("COLUMNS AVAILABLE IN 'raw_data': %s\n\n", strings.Join(columns, ", ")))

	prompt.WriteString("INSTRUCTIONS:\n")
	prompt.WriteString("1. Analyze the error and identify the cause\n")
	prompt.WriteString("2. Fix the SQL keeping the same cleaning logic\n")
	prompt.WriteString("3. Make sure the syntax is valid for SQLite\n\n")

	prompt.WriteString("Respond with:\n")
	prompt.WriteString("1. A brief explanation of the problem found\n")
	prompt.WriteString("2. The corrected SQL between ```sql and ```\n")

	return prompt.String()
}
