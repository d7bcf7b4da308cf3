package neosage

import (
	"fmt"
	"reflect"
	"strings"
)

// entityMetadata holds the parsed `crud` tag information for a specific struct type.
// This metadata is cached by the PersistenceManager to avoid costly reflection on every operation.
type entityMetadata struct {
	// Label is the graph node label, defaulting to the struct's name.
	Label string
	// PKField is the name of the struct field marked as the primary key.
	PKField string
	// PKProp is the property name of the primary key in the database.
	PKProp string
	// Mappings maps struct field names to their corresponding database property names.
	Mappings map[string]string
	// Features lists, in field order, the properties tagged as model input features.
	Features []string
}

// parseTagsFromType inspects a reflect.Type and extracts persistence metadata from
// `crud` struct tags. A tag is a comma separated list of components:
//
//	pk             the field is the primary key
//	property:name  the node property the field maps to (required)
//	feature        the property is an input feature of the model
//	label:Name     overrides the node label; only valid on the primary key
func parseTagsFromType(typ reflect.Type) (*entityMetadata, error) {
	// If the type is a pointer, get the underlying element's type.
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ.Name())
	}

	meta := &entityMetadata{
		Label:    typ.Name(),
		Mappings: make(map[string]string),
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("crud")

		// Skip fields that are not part of the persistence mapping.
		if tag == "" {
			continue
		}

		var isPk, isFeature bool
		propName, label := "", ""
		for _, part := range strings.Split(tag, ",") {
			switch {
			case part == "pk":
				isPk = true
			case part == "feature":
				isFeature = true
			case strings.HasPrefix(part, "property:"):
				propName = strings.TrimPrefix(part, "property:")
			case strings.HasPrefix(part, "label:"):
				label = strings.TrimPrefix(part, "label:")
			default:
				return nil, fmt.Errorf("field %s has unknown tag component %q", field.Name, part)
			}
		}

		if propName == "" {
			return nil, fmt.Errorf("field %s is missing 'property' tag component", field.Name)
		}
		if label != "" && !isPk {
			return nil, fmt.Errorf("field %s sets a label but is not the primary key", field.Name)
		}

		if isPk {
			meta.PKField = field.Name
			meta.PKProp = propName
			if label != "" {
				meta.Label = label
			}
		}
		if isFeature {
			meta.Features = append(meta.Features, propName)
		}
		meta.Mappings[field.Name] = propName
	}

	if meta.PKField == "" {
		return nil, fmt.Errorf("no primary key ('pk') tag defined for struct %s", typ.Name())
	}

	return meta, nil
}

// parseTags is a generic convenience wrapper around parseTagsFromType.
func parseTags[T any]() (*entityMetadata, error) {
	var instance T
	return parseTagsFromType(reflect.TypeOf(instance))
}

// FeatureProperties returns the properties of T tagged `feature`, in field order.
// The result is meant for sampling.NewConfig.
func FeatureProperties[T any]() ([]string, error) {
	meta, err := parseTags[T]()
	if err != nil {
		return nil, err
	}
	if len(meta.Features) == 0 {
		return nil, fmt.Errorf("struct %s has no field tagged 'feature'", meta.Label)
	}
	return meta.Features, nil
}

// LabelOf returns the node label T is stored under.
func LabelOf[T any]() (string, error) {
	meta, err := parseTags[T]()
	if err != nil {
		return "", err
	}
	return meta.Label, nil
}
