package parser

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/gopacket"

	"pcaptree/internal/models"
	"pcaptree/internal/render"
)

// text shows a value by its String method or %v form, escaped for the
// terminal.
var text models.Formatter = models.FormatterFunc(func(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return render.Escape(s.String())
	}
	return render.Escape(fmt.Sprintf("%v", v))
})

// number shows an integer in decimal even when its type has a String
// method, e.g. ports without their service names.
var number models.Formatter = models.FormatterFunc(func(v any) string {
	if n, ok := toUint(v); ok {
		return fmt.Sprintf("%d", n)
	}
	return text.Format(v)
})

// flagSet shows a set of flags by its String form, or 0 when none is set.
var flagSet models.Formatter = models.FormatterFunc(func(v any) string {
	if s := text.Format(v); s != "" {
		return s
	}
	return "0"
})

// hexNum shows an integer as 0x-prefixed hex padded to width digits.
func hexNum(width int) models.Formatter {
	return models.FormatterFunc(func(v any) string {
		n, ok := toUint(v)
		if !ok {
			return text.Format(v)
		}
		return fmt.Sprintf("0x%0*x", width, n)
	})
}

// symbol shows an enumerated integer by name and hex value, e.g. IPv4(0x0800).
func symbol(width int) models.Formatter {
	return models.FormatterFunc(func(v any) string {
		n, ok := toUint(v)
		if !ok {
			return text.Format(v)
		}
		return fmt.Sprintf("%s(0x%0*x)", text.Format(v), width, n)
	})
}

// list joins the elements of a slice with commas.
var list models.Formatter = models.FormatterFunc(func(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return text.Format(v)
	}
	items := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items = append(items, text.Format(rv.Index(i).Interface()))
	}
	return "[" + strings.Join(items, ", ") + "]"
})

func toUint(v any) (uint64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return 0, false
		}
		return uint64(rv.Int()), true
	default:
		return 0, false
	}
}

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

// generic converts a layer that has no field table by walking the exported
// fields of its struct. Fields that cannot be shown on one line are left out.
func generic(l gopacket.Layer) *models.Decoded {
	d := &models.Decoded{Name: l.LayerType().String(), Generic: true}
	rv := reflect.Indirect(reflect.ValueOf(l))
	if rv.Kind() != reflect.Struct {
		return d
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		fv := rv.Field(i)
		if !showable(fv) {
			continue
		}
		name := strings.ToLower(sf.Name)
		d.Fields = append(d.Fields, models.Field{Name: name, Format: text})
		if fv.Kind() == reflect.Slice && fv.Len() == 0 {
			continue
		}
		val := fv.Interface()
		if fv.Kind() == reflect.Slice && !fv.Type().Implements(stringerType) {
			val = fv.Bytes()
		}
		d.Set(name, val)
	}
	return d
}

func showable(v reflect.Value) bool {
	if v.Type().Implements(stringerType) {
		return v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface
	}
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return v.Type().Elem().Kind() == reflect.Uint8
	default:
		return false
	}
}
