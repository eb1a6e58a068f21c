package pubfront

// FindNeighbors returns the posts around index i of seq. Ends of the
// sequence, and an i outside it, yield null links.
func FindNeighbors(seq []PostSummary, i int) Neighbors {
	var n Neighbors
	if i < 0 || i >= len(seq) {
		return n
	}
	if i > 0 {
		n.Previous = linkTo(seq[i-1])
	}
	if i < len(seq)-1 {
		n.Next = linkTo(seq[i+1])
	}
	return n
}

func linkTo(p PostSummary) NavLink {
	title, uid := p.Title, p.UID
	return NavLink{Title: &title, UID: &uid}
}

// Present reports whether the link points at a post.
func (l NavLink) Present() bool {
	return l.UID != nil
}
