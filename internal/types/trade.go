package types

import "time"

// TradeRecord is one execution attempt, successful or not. Records are
// appended after every attempt and are immutable once written.
type TradeRecord struct {
	ID        string          `yaml:"id" json:"id"`
	UserID    string          `yaml:"user_id" json:"user_id"`
	Time      time.Time       `yaml:"time" json:"time"`
	Side      Side            `yaml:"side" json:"side"`
	Venue     string          `yaml:"venue" json:"venue"`
	Requested float64         `yaml:"requested" json:"requested"`
	FilledIn  float64         `yaml:"filled_in" json:"filled_in"`
	FilledOut float64         `yaml:"filled_out" json:"filled_out"`
	Price     float64         `yaml:"price" json:"price"`
	Fee       float64         `yaml:"fee" json:"fee"`
	Status    ExecutionStatus `yaml:"status" json:"status"`
	// ExternalRef is the venue transaction reference, empty on failure.
	ExternalRef string `yaml:"external_ref" json:"external_ref"`
	// Reason records why the trade was attempted or why it failed.
	Reason string `yaml:"reason" json:"reason"`
}
