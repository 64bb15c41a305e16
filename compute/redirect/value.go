package redirect

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrInvalidValue   = errors.New("redirect: invalid value")
	ErrUnknownVersion = errors.New("redirect: unknown version")
)

// Value é a regra guardada no KV para um host/path.
type Value struct {
	Permanent  bool
	AppendPath bool
	Fetch      bool
	URL        string
}

// número de opções por versão do formato.
var optionsByVersion = map[int]int{
	0: 2, // permanent, append_path
	1: 3, // + fetch
}

// ParseValue lê "VVV:o:o[:o]:url". A URL é o resto da string e pode conter ':'.
func ParseValue(raw string) (Value, error) {
	if len(raw) < 4 || raw[3] != ':' {
		return Value{}, fmt.Errorf("%w: missing version", ErrInvalidValue)
	}
	version, err := strconv.Atoi(raw[:3])
	if err != nil {
		return Value{}, fmt.Errorf("%w: version %q", ErrInvalidValue, raw[:3])
	}
	n, ok := optionsByVersion[version]
	if !ok {
		return Value{}, fmt.Errorf("%w: %03d", ErrUnknownVersion, version)
	}

	opts := make([]bool, n)
	for i := range opts {
		pos := 4 + 2*i
		if len(raw) < pos+2 || raw[pos+1] != ':' {
			return Value{}, fmt.Errorf("%w: option %d", ErrInvalidValue, i)
		}
		switch raw[pos] {
		case 't':
			opts[i] = true
		case 'f':
		default:
			return Value{}, fmt.Errorf("%w: option %d is %q", ErrInvalidValue, i, raw[pos])
		}
	}

	url := raw[4+2*n:]
	if url == "" {
		return Value{}, fmt.Errorf("%w: empty url", ErrInvalidValue)
	}

	v := Value{Permanent: opts[0], AppendPath: opts[1], URL: url}
	if n > 2 {
		v.Fetch = opts[2]
	}
	return v, nil
}

// String volta ao formato do KV (sempre na versão 001).
func (v Value) String() string {
	return fmt.Sprintf("001:%s:%s:%s:%s", flag(v.Permanent), flag(v.AppendPath), flag(v.Fetch), v.URL)
}

func flag(b bool) string {
	if b {
		return "t"
	}
	return "f"
}
