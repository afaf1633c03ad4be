// Package scoring holds the single engagement formula used for every stored
// and displayed post score.
package scoring

type PostType string

const (
	Original PostType = "original"
	Repost   PostType = "repost"
)

const (
	LikePoints        = 1
	CommentPoints     = 2
	RepostPoints      = 3
	OriginalPostBonus = 2
	RepostBonus       = 1
)

func (t PostType) Valid() bool {
	return t == Original || t == Repost
}

// Bonus rewards original authorship over resharing.
func (t PostType) Bonus() int {
	if t == Original {
		return OriginalPostBonus
	}
	return RepostBonus
}

// Score computes likes*1 + comments*2 + reposts*3 + type bonus. Counts are
// validated as non-negative before they reach this function.
func Score(likes, comments, reposts int, postType PostType) int {
	engagement := likes*LikePoints + comments*CommentPoints + reposts*RepostPoints
	return engagement + postType.Bonus()
}

// FromSourceType maps the scraper's POST/REPOST labels onto post types.
func FromSourceType(source string) (PostType, bool) {
	switch source {
	case "POST":
		return Original, true
	case "REPOST":
		return Repost, true
	}
	return "", false
}
