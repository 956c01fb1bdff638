package rtype

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// DefaultTableName derives a main table name from a record type's Go-ish
// name when a descriptor doesn't set MainTable explicitly: CamelCase is
// snake_cased, then pluralized ("OrderLine" -> "order_lines").
func DefaultTableName(recordTypeName string) string {
	return inflect.Pluralize(toSnakeCase(recordTypeName))
}

// DefaultChildTableName derives a child-collection table name from the
// owning record type and the property name ("Order", "lines" ->
// "order_lines").
func DefaultChildTableName(recordTypeName, propertyName string) string {
	return toSnakeCase(recordTypeName) + "_" + toSnakeCase(propertyName)
}

// DefaultLinkTableName derives a many-to-many association table name
// from two record type names, in declaration order ("Post", "Tag" ->
// "post_tags").
func DefaultLinkTableName(aName, bName string) string {
	return inflect.Singularize(toSnakeCase(aName)) + "_" + inflect.Pluralize(toSnakeCase(bName))
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
