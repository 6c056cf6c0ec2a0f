package requirements

import "fmt"

const promptTemplate = `Extracted text:

%s

Extract all requirements from the provided document, capturing the code, the description and the category of each requirement.
The 'code' field should contain the requirement code or identifier exactly as written in the document.
The 'description' field should contain the full text of the requirement.
The 'category' field should contain a short category for the requirement (for example "thermal", "interface", "performance"), or an empty string if none applies.

Return ONLY a JSON array of objects with the fields "code", "description" and "category", in the order the requirements appear.
Do not add any text before or after the JSON. Return [] if the document contains no requirements.`

// BuildPrompt returns the instruction prompt for the given document text.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}
