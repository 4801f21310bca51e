package amqp

import (
	"encoding/json"
	"time"

	"budget/internal/core"
)

// BatchItem is the wire shape of one extracted candidate transaction.
// Amount travels as a decimal string ("12.34") so producers in any
// language agree on the value without float representation issues.
type BatchItem struct {
	Kind        string            `json:"kind,omitempty"` // defaults to card downstream
	Card        string            `json:"card,omitempty"`
	Description string            `json:"description"`
	Amount      string            `json:"amount"`
	OccurredAt  *time.Time        `json:"occurred_at,omitempty"`
	Category    string            `json:"category,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Candidate converts the wire item into a domain candidate. An
// unparseable amount maps to zero cents, which the ingestion engine
// rejects per item; a bad record must degrade one slot of the batch, not
// fail the whole message.
func (i BatchItem) Candidate() core.Candidate {
	cents, err := core.ParseDecimalToCents(i.Amount)
	if err != nil {
		cents = 0
	}
	c := core.Candidate{
		Kind:        core.AccountKind(i.Kind),
		Card:        i.Card,
		Description: i.Description,
		Amount:      core.Money{Cents: cents},
		Category:    i.Category,
		Metadata:    i.Metadata,
	}
	if i.OccurredAt != nil {
		c.OccurredAt = *i.OccurredAt
	}
	return c
}

// ImportBatchMessage carries one extractor batch to the import worker.
type ImportBatchMessage struct {
	Source    string      `json:"source"` // manual|pdf|image|email
	Items     []BatchItem `json:"items"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewImportBatchMessage(source core.ImportSource, items []BatchItem) *ImportBatchMessage {
	return &ImportBatchMessage{
		Source:    string(source),
		Items:     items,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportBatchMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportBatchMessageFromJSON creates a message from JSON bytes
func ImportBatchMessageFromJSON(data []byte) (*ImportBatchMessage, error) {
	var msg ImportBatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
