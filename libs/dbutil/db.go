package dbutil

import "strconv"

// PostgresArgs returns n postgres placeholders for a database query
// starting at index si.
func PostgresArgs(si, n int) string {
	if n <= 0 {
		return ""
	}
	if si < 1 {
		panic("dbutil.PostgresArgs start index must be > 0")
	}

	// Count the digits in the greatest index we'll reach.
	digits := 1
	i := si + n
	for i > 10 {
		digits++
		i /= 10
	}

	res := make([]byte, 0, (digits+2)*n)
	for i := 0; i < n; i++ {
		res = append(res, '$')
		res = strconv.AppendInt(res, int64(i+si), 10)
		if i < n-1 {
			res = append(res, ',')
		}
	}
	return string(res)
}

// AppendStringsToInterfaceSlice appends the string slice to the interface slice.
func AppendStringsToInterfaceSlice(ifs []interface{}, ss []string) []interface{} {
	for _, s := range ss {
		ifs = append(ifs, s)
	}
	return ifs
}
