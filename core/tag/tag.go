package tag

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	tagName   = "default"
	separator = ","
	maxDepth  = 16
)

var (
	ErrTargetMustBePointer = errors.New("tag: target must be a non-nil pointer to struct")
	ErrMaxDepthExceeded    = errors.New("tag: max recursion depth exceeded")
	ErrUnsupportedType     = errors.New("tag: unsupported type")
)

var durationType = reflect.TypeOf(time.Duration(0))

// FieldError 描述某个字段默认值解析失败
type FieldError struct {
	Path  string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("tag: field %q default %q: %v", e.Path, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ApplyDefaults 根据 `default:"..."` 标签填充结构体零值字段
//
// 已有值的字段不会被覆盖；嵌套结构体与非空结构体指针会递归处理；
// time.Duration 使用 time.ParseDuration 解析（如 "15m"），
// 切片使用逗号分隔，map 使用 "k:v,k:v" 格式。
func ApplyDefaults(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrTargetMustBePointer
	}
	return applyStruct(v.Elem(), "", 0)
}

func applyStruct(v reflect.Value, prefix string, depth int) error {
	if depth >= maxDepth {
		return ErrMaxDepthExceeded
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}
		if err := applyField(fv, field.Tag.Get(tagName), path, depth); err != nil {
			return err
		}
	}
	return nil
}

func applyField(fv reflect.Value, def, path string, depth int) error {
	switch fv.Kind() {
	case reflect.Struct:
		return applyStruct(fv, path, depth+1)
	case reflect.Pointer:
		if fv.IsNil() {
			if def == "" {
				return nil
			}
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		if fv.Elem().Kind() == reflect.Struct {
			return applyStruct(fv.Elem(), path, depth+1)
		}
		return applyField(fv.Elem(), def, path, depth)
	case reflect.Slice:
		if fv.Len() > 0 {
			for i := 0; i < fv.Len(); i++ {
				elem := fv.Index(i)
				if elem.Kind() == reflect.Struct {
					if err := applyStruct(elem, fmt.Sprintf("%s[%d]", path, i), depth+1); err != nil {
						return err
					}
				}
			}
			return nil
		}
	}

	if def == "" || !fv.IsZero() {
		return nil
	}
	if err := setValue(fv, def); err != nil {
		return &FieldError{Path: path, Value: def, Err: err}
	}
	return nil
}

func setValue(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Slice:
		parts := strings.Split(raw, separator)
		slice := reflect.MakeSlice(fv.Type(), len(parts), len(parts))
		for i, p := range parts {
			if err := setValue(slice.Index(i), strings.TrimSpace(p)); err != nil {
				return err
			}
		}
		fv.Set(slice)
	case reflect.Map:
		m := reflect.MakeMap(fv.Type())
		for _, pair := range strings.Split(raw, separator) {
			k, val, ok := strings.Cut(pair, ":")
			if !ok {
				continue
			}
			key := reflect.New(fv.Type().Key()).Elem()
			elem := reflect.New(fv.Type().Elem()).Elem()
			if err := setValue(key, strings.TrimSpace(k)); err != nil {
				return err
			}
			if err := setValue(elem, strings.TrimSpace(val)); err != nil {
				return err
			}
			m.SetMapIndex(key, elem)
		}
		fv.Set(m)
	default:
		return ErrUnsupportedType
	}
	return nil
}
