package application

// DisplayDateLayout is how post dates are shown, e.g. "March 5, 2024".
const DisplayDateLayout = "January 2, 2006"

// FormatDate formats an archive timestamp for display. A value that does not
// parse is returned unchanged.
func FormatDate(raw string, layout string) string {
	if layout == "" {
		layout = DisplayDateLayout
	}

	t := parseTimestamp(raw)
	if t.IsZero() {
		return raw
	}

	return t.Format(layout)
}
