package target

// Summary is the slice of a library-function summary this subsystem
// needs: which parameter positions carry string values. The full
// summary database lives in the external analysis engine.
type Summary struct {
	Name       string `yaml:"name" json:"name"`
	StringArgs []int  `yaml:"string_args" json:"string_args"`
}

// IsStringArg reports whether parameter index i is string-typed
// according to the summary.
func (s Summary) IsStringArg(i int) bool {
	for _, idx := range s.StringArgs {
		if idx == i {
			return true
		}
	}
	return false
}

// DefaultSummaries covers the libc string and memory functions the
// analyzer most commonly flags. Callers merge their own summaries on
// top via NewResolver.
func DefaultSummaries() []Summary {
	return []Summary{
		{Name: "strcpy", StringArgs: []int{0, 1}},
		{Name: "strncpy", StringArgs: []int{0, 1}},
		{Name: "strcat", StringArgs: []int{0, 1}},
		{Name: "strncat", StringArgs: []int{0, 1}},
		{Name: "strcmp", StringArgs: []int{0, 1}},
		{Name: "strncmp", StringArgs: []int{0, 1}},
		{Name: "strlen", StringArgs: []int{0}},
		{Name: "strstr", StringArgs: []int{0, 1}},
		{Name: "sprintf", StringArgs: []int{0, 1}},
		{Name: "snprintf", StringArgs: []int{0, 2}},
		{Name: "system", StringArgs: []int{0}},
		{Name: "popen", StringArgs: []int{0, 1}},
		{Name: "fopen", StringArgs: []int{0, 1}},
		{Name: "memcpy", StringArgs: nil},
		{Name: "memset", StringArgs: nil},
	}
}
