package auth

import "github.com/sakif/inkwell/internal/model"

// CanMutate reports whether the caller may edit or delete post: only its
// owner may.
//
// AUTHENTICATION VS AUTHORIZATION:
// RequireAuth answers "who is calling?" (401 when nobody is). CanMutate
// answers "may this caller touch this post?" (403 when not). It is a pure
// predicate with no database access: PostService loads the post, asks
// CanMutate, and turns false into apperror.Forbidden before any write.
//
// Reading posts and commenting need no ownership, so only edit and delete
// go through here.
func CanMutate(post *model.Post, caller Identity) bool {
	if post == nil || caller.UserID == "" {
		return false
	}
	return post.UserID == caller.UserID
}
