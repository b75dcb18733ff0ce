package schema

import "strings"

// Relationship type naming convention for complex properties. The exact
// prefix and suffix are an interoperability contract shared with existing
// mappers and must reproduce bit-exact.
const (
	// PropertyRelPrefix marks relationship types that carry a complex
	// property rather than a domain connection.
	PropertyRelPrefix = "__PROPERTY__"

	propertyRelSuffix = "__"
)

// PropertyRelationshipName derives the relationship type name for a
// complex property field: "__PROPERTY__{field}__". The field name is
// embedded verbatim, case preserved.
func PropertyRelationshipName(fieldName string) string {
	return PropertyRelPrefix + fieldName + propertyRelSuffix
}

// PropertyNameFromRelationship inverts PropertyRelationshipName. Names
// that do not follow the convention are returned unchanged. The length
// check keeps the prefix and suffix from overlapping on short inputs
// such as "__PROPERTY__" itself, which would otherwise slice out of
// range.
func PropertyNameFromRelationship(relTypeName string) string {
	if len(relTypeName) >= len(PropertyRelPrefix)+len(propertyRelSuffix) &&
		strings.HasPrefix(relTypeName, PropertyRelPrefix) && strings.HasSuffix(relTypeName, propertyRelSuffix) {
		return relTypeName[len(PropertyRelPrefix) : len(relTypeName)-len(propertyRelSuffix)]
	}
	return relTypeName
}

// IsPropertyRelationship reports whether a relationship type name was
// produced by the complex-property convention.
func IsPropertyRelationship(relTypeName string) bool {
	return len(relTypeName) >= len(PropertyRelPrefix)+len(propertyRelSuffix) &&
		strings.HasPrefix(relTypeName, PropertyRelPrefix) && strings.HasSuffix(relTypeName, propertyRelSuffix)
}

// IsValidRelationshipTypeName validates a general relationship type name:
// non-empty, starts with an uppercase letter or underscore, and contains
// only letters, digits and underscores.
func IsValidRelationshipTypeName(name string) bool {
	if name == "" {
		return false
	}
	first := rune(name[0])
	if !(first == '_' || (first >= 'A' && first <= 'Z')) {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
