package tvilling

// Match is a numbered left/right pairing slot. IDs are assigned once and never reused.
type Match struct {
	ID    int
	Left  *Collection
	Right *Collection
}

// MatchBody is the serialized form of a Match.
type MatchBody struct {
	ID    int            `json:"id"`
	Left  CollectionBody `json:"left"`
	Right CollectionBody `json:"right"`
}

// Label returns the letter label for id: 1 is "A", 26 is "Z", 27 is "AA".
func (m *Match) Label() string {
	return Label(m.ID)
}

// Label converts a match id into its base-26 letter label.
func Label(id int) string {
	if id <= 0 {
		return ""
	}
	var bs []byte
	for id > 0 {
		id--
		bs = append([]byte{byte('A' + id%26)}, bs...)
		id /= 26
	}
	return string(bs)
}

// Body returns the serialized form.
func (m *Match) Body() MatchBody {
	return MatchBody{ID: m.ID, Left: m.Left.Body(), Right: m.Right.Body()}
}
