package db

import _ "embed"

//go:embed schema.sql
var Schema string

// AttributeKind is the value of film_attribute.kind.
type AttributeKind string

const (
	ATTRIBUTE_GENRE    AttributeKind = "genre"
	ATTRIBUTE_THEME    AttributeKind = "theme"
	ATTRIBUTE_COUNTRY  AttributeKind = "country"
	ATTRIBUTE_LANGUAGE AttributeKind = "language"
)
