package content

// RequiresShortURL reports whether the content is dynamic, i.e. encoded as a
// redirect through a short URL. Derive it from the current content on every
// write; toggling isEditable or isDynamic changes the answer.
func RequiresShortURL(c Content) bool {
	switch d := c.Data.(type) {
	case URL:
		return d.IsEditable
	case VCard:
		return d.IsDynamic
	case Event:
		return true
	default:
		return false
	}
}
