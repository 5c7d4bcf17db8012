package nl2sql

import "strings"

// BuildPrompt embeds the schema listing and the question in the completion
// prompt. The prompt ends with a bare SELECT so the model continues with the
// body of the query instead of repeating the keyword.
func BuildPrompt(schemaJSON, question string) string {
	var b strings.Builder
	b.WriteString("# Here are the columns in the database:\n# ")
	b.WriteString(schemaJSON)
	b.WriteString("\n### Generate a single T-SQL query for the following question using the information about the database: ")
	b.WriteString(question)
	b.WriteString("\n\nSELECT")
	return b.String()
}
