package transform

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redbco/redb-resx/resx"
)

// builtinFunc is the shape every built-in transformer reduces to: given the
// resource's materialised bytes (ignored by generators) and its options, it
// returns the transformed bytes.
type builtinFunc func(ctx context.Context, data []byte, options map[string]interface{}) ([]byte, error)

// funcTransformer adapts a builtinFunc to resx.Transformer, ported from the
// teacher's services/transformation/internal/engine.functions.go function
// table.
type funcTransformer struct {
	name           string
	fn             builtinFunc
	ignoresContent bool
}

// Transform implements resx.Transformer.
func (t funcTransformer) Transform(ctx context.Context, resource resx.Resource, options map[string]interface{}) (resx.Resource, error) {
	var data []byte
	if !t.ignoresContent {
		v, err := resx.Data(resource.Content, nil)
		if err != nil {
			return resx.Resource{}, err
		}
		b, ok := v.([]byte)
		if !ok {
			return resx.Resource{}, fmt.Errorf("transform %s: content is not byte-representable", t.name)
		}
		data = b
	}
	out, err := t.fn(ctx, data, options)
	if err != nil {
		return resx.Resource{}, fmt.Errorf("transform %s: %w", t.name, err)
	}
	content, err := resx.NewEagerContent(resource.Content.Type(), out)
	if err != nil {
		return resx.Resource{}, err
	}
	return resx.Resource{Content: content, Meta: resource.Meta}, nil
}

func optionString(options map[string]interface{}, key string) string {
	v, ok := options[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// builtins returns the §4.M built-in transformer set.
func builtins() map[string]resx.Transformer {
	return map[string]resx.Transformer{
		"uppercase": funcTransformer{name: "uppercase", fn: func(_ context.Context, data []byte, _ map[string]interface{}) ([]byte, error) {
			return []byte(strings.ToUpper(string(data))), nil
		}},
		"lowercase": funcTransformer{name: "lowercase", fn: func(_ context.Context, data []byte, _ map[string]interface{}) ([]byte, error) {
			return []byte(strings.ToLower(string(data))), nil
		}},
		"reverse": funcTransformer{name: "reverse", fn: func(_ context.Context, data []byte, _ map[string]interface{}) ([]byte, error) {
			runes := []rune(string(data))
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return []byte(string(runes)), nil
		}},
		"base64encode": funcTransformer{name: "base64encode", fn: func(_ context.Context, data []byte, _ map[string]interface{}) ([]byte, error) {
			return []byte(base64.StdEncoding.EncodeToString(data)), nil
		}},
		"base64decode": funcTransformer{name: "base64decode", fn: func(_ context.Context, data []byte, _ map[string]interface{}) ([]byte, error) {
			decoded, err := base64.StdEncoding.DecodeString(string(data))
			if err != nil {
				return nil, fmt.Errorf("invalid base64 input: %w", err)
			}
			return decoded, nil
		}},
		"hashsha256": funcTransformer{name: "hashsha256", fn: func(_ context.Context, data []byte, _ map[string]interface{}) ([]byte, error) {
			sum := sha256.Sum256(data)
			return []byte(fmt.Sprintf("%x", sum)), nil
		}},
		"hashmd5": funcTransformer{name: "hashmd5", fn: func(_ context.Context, data []byte, _ map[string]interface{}) ([]byte, error) {
			sum := md5.Sum(data)
			return []byte(fmt.Sprintf("%x", sum)), nil
		}},
		"prefixer": funcTransformer{name: "prefixer", fn: func(_ context.Context, data []byte, options map[string]interface{}) ([]byte, error) {
			return append([]byte(optionString(options, "value")), data...), nil
		}},
		"suffixer": funcTransformer{name: "suffixer", fn: func(_ context.Context, data []byte, options map[string]interface{}) ([]byte, error) {
			out := append([]byte(nil), data...)
			return append(out, []byte(optionString(options, "value"))...), nil
		}},
		"replacer": funcTransformer{name: "replacer", fn: func(_ context.Context, data []byte, options map[string]interface{}) ([]byte, error) {
			pattern := optionString(options, "pattern")
			replacement := optionString(options, "replacement")
			return []byte(strings.ReplaceAll(string(data), pattern, replacement)), nil
		}},
		"uuidgenerator": funcTransformer{name: "uuidgenerator", ignoresContent: true, fn: func(_ context.Context, _ []byte, _ map[string]interface{}) ([]byte, error) {
			return []byte(uuid.New().String()), nil
		}},
	}
}
