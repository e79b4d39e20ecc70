package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/jarvis/internal/command"
)

// imageTaskText accompanies image payloads, which carry no user text.
const imageTaskText = "Analyze this image (usually a receipt, invoice or screenshot) and return the single action it represents."

const instructionTemplate = `You are Jarvis, a family finance and calendar assistant. Users write or speak in Portuguese or English.
Classify the user's input into exactly ONE action and answer with a single JSON object, no markdown and no prose:

{"action": "<action>", "confidence": <number 0..1>, "data": { ... }}

Actions and their data fields:
- "transaction": money spent or received.
  data: {"type": "expense"|"income", "amount": <positive number>, "description": string, "category": string, "date": "YYYY-MM-DD", "payment_method": "credit_card"|"cash"|"pix"}
  Use "pix" when the payment method is not mentioned. Use today's date when no date is mentioned.
- "event": a new calendar event.
  data: {"title": string, "start_time": timestamp, "end_time": timestamp, "all_day": boolean}
  When no duration is given, end one hour after start.
- "task": a to-do item.
  data: {"title": string, "due_date": timestamp or omitted}
- "delete_event": cancel an existing event.
  data: {"reference": short words from the event title, "date": "YYYY-MM-DD" or omitted}
- "update_event": change an existing event.
  data: {"reference": short words from the event title, "new_title": string or omitted, "new_start": timestamp or omitted, "new_end": timestamp or omitted, "date": "YYYY-MM-DD" of the existing event or omitted}
  Include only the fields the user wants to change.

Context:
- Current date and time: %s (%s)
- Time zone: %s (UTC offset %s)
- Family: %s

Timestamps are ISO 8601 with the user's UTC offset, for example %s.
Never convert timestamps to UTC or use the "Z" suffix unless the user explicitly asks for UTC.
Resolve relative expressions such as "tomorrow" or "next friday" against the current date above.`

// SystemInstruction builds the instruction for a normalized request.
func SystemInstruction(req command.Request) string {
	c := req.Context
	now := c.CurrentDateTime.In(c.Location())
	example := time.Date(now.Year(), now.Month(), now.Day(), 14, 0, 0, 0, c.Location()).Format(time.RFC3339)
	return fmt.Sprintf(instructionTemplate,
		now.Format(time.RFC3339),
		now.Weekday(),
		c.TimeZone,
		c.UTCOffset(),
		c.FamilyID,
		example,
	)
}

// BuildPrompt converts a normalized request into a Prompt.
func BuildPrompt(req command.Request) (Prompt, error) {
	p := Prompt{Instruction: SystemInstruction(req)}
	switch req.Kind {
	case command.KindImage:
		img, err := req.Image()
		if err != nil {
			return Prompt{}, err
		}
		p.Text = imageTaskText
		p.Image = &img
	default:
		p.Text = strings.TrimSpace(req.Payload)
	}
	return p, nil
}

// combined joins instruction and user text for providers without distinct
// system and user roles.
func (p Prompt) combined() string {
	return p.Instruction + "\n\nUser input:\n" + p.Text
}
