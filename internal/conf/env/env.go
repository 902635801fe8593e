// Package env contains a function to load configuration from environment.
package env

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// Unmarshaler can be implemented to override the unmarshaling process.
type Unmarshaler interface {
	UnmarshalEnv(prefix string, v string) error
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "true":
		return true, nil

	case "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid value '%s'", v)
}

func loadValue(env map[string]string, prefix string, rv reflect.Value) error {
	if rv.CanAddr() {
		if u, ok := rv.Addr().Interface().(Unmarshaler); ok {
			if ev, ok := env[prefix]; ok {
				err := u.UnmarshalEnv(prefix, ev)
				if err != nil {
					return fmt.Errorf("%s: %w", prefix, err)
				}
			}
			return nil
		}
	}

	switch rv.Kind() {
	case reflect.String:
		if ev, ok := env[prefix]; ok {
			rv.SetString(ev)
		}
		return nil

	case reflect.Int, reflect.Int64:
		if ev, ok := env[prefix]; ok {
			iv, err := strconv.ParseInt(ev, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", prefix, err)
			}
			rv.SetInt(iv)
		}
		return nil

	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		if ev, ok := env[prefix]; ok {
			iv, err := strconv.ParseUint(ev, 10, rv.Type().Bits())
			if err != nil {
				return fmt.Errorf("%s: %w", prefix, err)
			}
			rv.SetUint(iv)
		}
		return nil

	case reflect.Bool:
		if ev, ok := env[prefix]; ok {
			bv, err := parseBool(ev)
			if err != nil {
				return fmt.Errorf("%s: %w", prefix, err)
			}
			rv.SetBool(bv)
		}
		return nil

	case reflect.Slice:
		if rv.Type().Elem().Kind() != reflect.String {
			break
		}
		if ev, ok := env[prefix]; ok {
			if ev == "" {
				rv.Set(reflect.MakeSlice(rv.Type(), 0, 0))
			} else {
				parts := strings.Split(ev, ",")
				sv := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
				for i, p := range parts {
					sv.Index(i).SetString(p)
				}
				rv.Set(sv)
			}
		}
		return nil

	case reflect.Ptr:
		if _, ok := env[prefix]; !ok {
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return loadValue(env, prefix, rv.Elem())

	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			key := strings.Split(f.Tag.Get("json"), ",")[0]

			// load only public fields
			if key == "" || key == "-" {
				continue
			}

			err := loadValue(env, prefix+"_"+strings.ToUpper(key), rv.Field(i))
			if err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("unsupported type: %v", rv.Type())
}

func loadWithEnv(env map[string]string, prefix string, v interface{}) error {
	return loadValue(env, prefix, reflect.ValueOf(v).Elem())
}

func envToMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		tmp := strings.SplitN(kv, "=", 2)
		env[tmp[0]] = tmp[1]
	}
	return env
}

// Load the configuration from the environment.
// Keys are the json tags of the fields, uppercased and joined to prefix with underscores.
func Load(prefix string, v interface{}) error {
	return loadWithEnv(envToMap(), prefix, v)
}
