package cart

// Merge combines the server-held cart with a locally cached one.
//
// When either side is empty the other is returned as is. Otherwise the
// result starts from server; each local line either adds its quantity to
// the server line of the same item, keeping the server's title, price and
// image, or is appended unchanged. Merge does not modify its arguments.
func Merge(server, local Cart) Cart {
	if local.IsEmpty() {
		return server.Clone()
	}
	if server.IsEmpty() {
		return local.Clone()
	}

	merged := server.Clone()
	for _, l := range local.lines {
		if i := merged.index(l.ItemID); i >= 0 {
			merged.lines[i].Quantity += l.Quantity
			continue
		}
		merged.lines = append(merged.lines, l)
	}
	return merged
}
