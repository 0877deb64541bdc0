package models

import "fmt"

// UpdateField names a ProjectArticle field the reconciliation engine can
// change. It is a closed set so the certificate-cascade rule can be checked
// exhaustively instead of string-matching.
type UpdateField string

const (
	FieldChargeNumber UpdateField = "charge_number"
	FieldQuantity     UpdateField = "quantity"
	FieldLevel        UpdateField = "level"
	FieldDescription  UpdateField = "description"
)

// Valid reports whether f is one of the known update fields.
func (f UpdateField) Valid() bool {
	switch f {
	case FieldChargeNumber, FieldQuantity, FieldLevel, FieldDescription:
		return true
	}
	return false
}

// CascadesCertificates reports whether applying an update on this field
// invalidates the article's certificates. Only a charge change does: the
// certificates are evidence for the old charge.
func (f UpdateField) CascadesCertificates() bool {
	return f == FieldChargeNumber
}

// UpdateSource identifies which kind of re-import produced an update.
type UpdateSource string

const (
	SourceArticleList UpdateSource = "article_list"
	SourceInventory   UpdateSource = "inventory"
)

// ArticleUpdate is one field-level difference found by comparing a re-import
// against persisted project state. It is transient: nothing is persisted
// until the user accepts it and ApplyUpdates runs.
type ArticleUpdate struct {
	ArticleNumber string       `json:"article_number"`
	// Level identifies which ProjectArticle row the update targets, since the
	// same article number may exist at several levels.
	Level               string       `json:"level"`
	Source              UpdateSource `json:"source"`
	Field               UpdateField  `json:"field"`
	OldValue            string       `json:"old_value"`
	NewValue            string       `json:"new_value"`
	AffectsCertificates bool         `json:"affects_certificates"`
}

func (u ArticleUpdate) String() string {
	return fmt.Sprintf("%s: %s '%s' -> '%s'", u.ArticleNumber, u.Field, u.OldValue, u.NewValue)
}
