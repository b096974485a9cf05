package articles

// CanRead reports whether the caller may read the article. Published
// articles are visible to everyone, including anonymous callers
// (callerID == ""); unpublished articles only to their author.
func CanRead(callerID string, article *Article) bool {
	if article.IsPublished {
		return true
	}
	return callerID != "" && callerID == article.AuthorID
}

// CanUpdate reports whether the caller may modify the article. Only the
// author may, and never anonymously.
func CanUpdate(callerID string, article *Article) bool {
	return callerID != "" && callerID == article.AuthorID
}
