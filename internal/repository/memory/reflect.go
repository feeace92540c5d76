package memory

import (
	"fmt"
	"reflect"
	"strings"
)

// columnIndex maps db tags of a struct type to field indexes
func columnIndex(t reflect.Type) map[string]int {
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("db"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		index[tag] = i
	}
	return index
}

func setColumn(row reflect.Value, field int, value interface{}) error {
	f := row.Field(field)
	v := reflect.ValueOf(value)
	switch {
	case !v.IsValid():
		f.Set(reflect.Zero(f.Type()))
	case v.Type().AssignableTo(f.Type()):
		f.Set(v)
	case v.Kind() != reflect.String && f.Kind() == reflect.String:
		return fmt.Errorf("cannot store %T in %s", value, f.Type())
	case v.Type().ConvertibleTo(f.Type()):
		f.Set(v.Convert(f.Type()))
	default:
		return fmt.Errorf("cannot store %T in %s", value, f.Type())
	}
	return nil
}

// sameValue compares a stored column with a filter or constraint value by
// their printed form, so "active" matches model.StatusActive
func sameValue(a, b interface{}) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
