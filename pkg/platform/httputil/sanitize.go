package httputil

import (
	"reflect"
	"strings"
	"unicode"
)

// sanitize cleans the exported string data of a decoded request in place:
// strings and *string are trimmed with control characters removed, []string
// loses entries that end up empty, and nested structs are walked the same way.
func sanitize(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		return
	}
	cleanStruct(val.Elem())
}

func cleanStruct(val reflect.Value) {
	if val.Kind() != reflect.Struct {
		return
	}
	for i := range val.NumField() {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(cleanString(field.String()))
		case reflect.Pointer:
			if field.IsNil() {
				continue
			}
			switch elem := field.Elem(); elem.Kind() {
			case reflect.String:
				elem.SetString(cleanString(elem.String()))
			case reflect.Struct:
				cleanStruct(elem)
			}
		case reflect.Struct:
			cleanStruct(field)
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String && !field.IsNil() {
				field.Set(cleanList(field))
			}
		}
	}
}

func cleanString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func cleanList(list reflect.Value) reflect.Value {
	out := reflect.MakeSlice(list.Type(), 0, list.Len())
	for j := range list.Len() {
		if s := cleanString(list.Index(j).String()); s != "" {
			out = reflect.Append(out, reflect.ValueOf(s).Convert(list.Type().Elem()))
		}
	}
	return out
}
