package access

import "strings"

// Match reports whether path fits pattern. Pattern segments starting with ':'
// capture one path segment; a lone "*" matches anything.
func Match(pattern, path string) (map[string]string, bool) {
	if pattern == catchAllSymbol {
		return nil, true
	}

	ps := split(pattern)
	xs := split(path)
	if len(ps) != len(xs) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range ps {
		if strings.HasPrefix(seg, ":") {
			if xs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[seg[1:]] = xs[i]
			continue
		}
		if seg != xs[i] {
			return nil, false
		}
	}
	return params, true
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
