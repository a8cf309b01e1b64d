// Package styles is the fixed catalog of headshot styles users can pick from.
package styles

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	CategoryAll          = "all"
	CategoryBusiness     = "business"
	CategoryProfessional = "professional"
	CategoryCreative     = "creative"
)

// Style is one selectable look. AIPrompt is sent to the provider.
type Style struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PreviewImage string `json:"previewImage"`
	AIPrompt     string `json:"-"`
	Category     string `json:"category"`
}

// Category is a filter option for the catalog.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var catalog = []Style{
	{
		ID:           "business-suit",
		Name:         "Business Suit",
		Description:  "Professional business attire with formal suit and tie",
		PreviewImage: "/images/styles/business-suit.jpg",
		AIPrompt:     "Professional headshot of a person wearing a formal business suit, studio lighting, clean background, corporate portrait style, high quality, 4K",
		Category:     CategoryBusiness,
	},
	{
		ID:           "business-casual",
		Name:         "Business Casual",
		Description:  "Smart casual business look with blazer",
		PreviewImage: "/images/styles/business-casual.jpg",
		AIPrompt:     "Professional headshot of a person wearing business casual attire, blazer, studio lighting, clean background, modern corporate portrait, high quality, 4K",
		Category:     CategoryBusiness,
	},
	{
		ID:           "executive",
		Name:         "Executive",
		Description:  "Executive-level professional with premium background",
		PreviewImage: "/images/styles/executive.jpg",
		AIPrompt:     "Executive portrait of a person, premium business setting, elegant lighting, sophisticated background, executive presence, professional corporate photography, high quality, 4K",
		Category:     CategoryProfessional,
	},
	{
		ID:           "creative-casual",
		Name:         "Creative Casual",
		Description:  "Modern creative professional look",
		PreviewImage: "/images/styles/creative-casual.jpg",
		AIPrompt:     "Modern headshot of a creative professional, stylish casual attire, natural lighting, contemporary background, creative industry look, high quality, 4K",
		Category:     CategoryCreative,
	},
	{
		ID:           "tech-startup",
		Name:         "Tech Startup",
		Description:  "Modern tech startup founder style",
		PreviewImage: "/images/styles/tech-startup.jpg",
		AIPrompt:     "Tech startup founder headshot, modern professional look, clean minimalist background, tech industry style, approachable yet professional, high quality, 4K",
		Category:     CategoryProfessional,
	},
	{
		ID:           "linkedin-professional",
		Name:         "LinkedIn Pro",
		Description:  "Optimized for LinkedIn profile pictures",
		PreviewImage: "/images/styles/linkedin.jpg",
		AIPrompt:     "LinkedIn professional headshot, perfect for business networking, friendly yet professional expression, studio lighting, optimal LinkedIn crop, high quality, 4K",
		Category:     CategoryBusiness,
	},
}

// Lookup returns the style with the given id.
func Lookup(id string) (Style, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

// ByCategory filters the catalog. An empty category or "all" returns every style.
func ByCategory(category string) []Style {
	category = strings.ToLower(strings.TrimSpace(category))
	out := make([]Style, 0, len(catalog))
	for _, s := range catalog {
		if category == "" || category == CategoryAll || s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// Categories lists the filter options with labels cased for tag.
func Categories(tag language.Tag) []Category {
	title := cases.Title(tag)
	ids := []string{CategoryBusiness, CategoryProfessional, CategoryCreative}
	out := []Category{{ID: CategoryAll, Label: "All Styles"}}
	for _, id := range ids {
		out = append(out, Category{ID: id, Label: title.String(id)})
	}
	return out
}
