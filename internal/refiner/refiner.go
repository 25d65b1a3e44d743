// Package refiner proposes a context-aware improvement of a basic
// translation. The proposal is only a candidate: the optimization stage asks
// the arbiter whether it beats the basic translation.
package refiner

import "context"

// Request carries one segment's text, its basic translation and the
// surrounding translated context.
type Request struct {
	Original   string
	Basic      string
	Context    string
	TargetLang string

	// Glossary maps source terms to the translation that must be used.
	Glossary map[string]string
}

// Refiner returns a candidate translation of req.Original. It never fails:
// without a usable answer it returns req.Basic.
type Refiner interface {
	Refine(ctx context.Context, req Request) string
}
