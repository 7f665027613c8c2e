// convert.go
//
// A document persistence store for wikis, with versioning, attachments and a recycle bin
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of docstore.
// docstore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// docstore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with docstore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package property

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrLossyConversion reports a value that could not be represented in the target kind
var ErrLossyConversion = errors.New("property: value cannot be converted")

// DateLayout is the textual form of dates converted to and from strings
const DateLayout = time.RFC3339

// Convert returns p re-typed as kind to. Narrowing list to scalar keeps the first element,
// Long to Integer and Double to Float truncate. When the value cannot be parsed the
// returned property is empty and ErrLossyConversion is reported alongside it.
func Convert(p Property, to Kind) (Property, error) {
	out := Property{Name: p.Name, Kind: to}
	if to == KindUnknown {
		return out, fmt.Errorf("%w: unknown target kind", ErrLossyConversion)
	}
	if p.Value == nil {
		return out, nil
	}
	if p.Kind == to {
		return p.Clone(), nil
	}

	var src any = p.Value
	if to.IsList() {
		if l, ok := src.([]string); ok {
			out.Value = append([]string(nil), l...)
			return out, nil
		}
		s := format(src)
		if s == "" {
			out.Value = []string{}
		} else {
			out.Value = strings.Split(s, ListSeparator)
		}
		return out, nil
	}

	if l, ok := src.([]string); ok {
		if len(l) == 0 {
			return out, nil
		}
		src = l[0]
	}
	v, err := normalize(to, src)
	if err != nil {
		return out, fmt.Errorf("%w: %s from %s: %v", ErrLossyConversion, p.Name, p.Kind, err)
	}
	out.Value = v
	return out, nil
}

func normalize(kind Kind, value any) (any, error) {
	switch kind {
	case KindString, KindLargeString:
		return format(value), nil
	case KindInteger:
		n, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case KindLong:
		return toInt64(value)
	case KindFloat:
		f, err := toFloat64(value)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case KindDouble:
		return toFloat64(value)
	case KindDate:
		return toTime(value)
	case KindStringList, KindDBStringList:
		switch v := value.(type) {
		case []string:
			return append([]string(nil), v...), nil
		case string:
			if v == "" {
				return []string{}, nil
			}
			return strings.Split(v, ListSeparator), nil
		}
		return []string{format(value)}, nil
	}
	return value, nil
}

func format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ListSeparator)
	case time.Time:
		return v.Format(DateLayout)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	}
	return fmt.Sprint(value)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case time.Time:
		return v.UnixMilli(), nil
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("unsupported number source %T", value)
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("unsupported number source %T", value)
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case int32:
		return time.UnixMilli(int64(v)).UTC(), nil
	case string:
		t, err := time.Parse(DateLayout, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, fmt.Errorf("not a date: %q", v)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unsupported date source %T", value)
}
