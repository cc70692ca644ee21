package model

// An Xref ties an entity to an external database record. Documents carry
// xrefs either as two attributes (Database, ID) or in the compact
// "datasource:identifier" form; ParseXref handles the compact form.

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/gopml/gopml/core/errors"
)

// Xref identifies an external database record, e.g. an Ensembl gene or a
// PubMed article.
type Xref struct {
	DataSource string `json:"datasource"`
	ID         string `json:"id"`
}

// String renders the xref in compact "datasource:identifier" form.
func (x *Xref) String() string {
	if x == nil {
		return ""
	}
	if x.DataSource == "" {
		return x.ID
	}
	return x.DataSource + ":" + x.ID
}

// IsEmpty reports whether the xref carries no information.
func (x *Xref) IsEmpty() bool {
	return x == nil || (x.DataSource == "" && x.ID == "")
}

func equalXref(a, b *Xref) bool {
	if a.IsEmpty() && b.IsEmpty() {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.DataSource == b.DataSource && a.ID == b.ID
}

// xrefGrammar is the participle grammar for compact xrefs.
// Examples: "Ensembl:ENSG00000141510", "L:5594", "GO:0005634"
//
// The identifier may itself contain colons (ontology terms do), so
// everything after the first colon belongs to the identifier.
type xrefGrammar struct {
	Source  string   `parser:"@Part"`
	IDParts []string `parser:"( ':' @Part )+"`
}

// xrefLexer defines the lexer for compact xrefs.
var xrefLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Part", Pattern: `[^:\s]+`},
	{Name: "Punct", Pattern: `:`},
})

// xrefParser is the participle parser for compact xrefs.
var xrefParser = participle.MustBuild[xrefGrammar](
	participle.Lexer(xrefLexer),
)

// ParseXref parses a compact "datasource:identifier" string.
func ParseXref(s string) (*Xref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.NewValidation("xref", "empty xref string")
	}

	parsed, err := xrefParser.ParseString("", s)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:   "xref",
			Value:   s,
			Message: "not in datasource:identifier form",
			Err:     err,
		}
	}

	return &Xref{
		DataSource: parsed.Source,
		ID:         strings.Join(parsed.IDParts, ":"),
	}, nil
}
