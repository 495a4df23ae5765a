package normalizer

import "strings"

// cropSynonyms maps regional-language crop names onto the fixed vocabulary.
// Lookup is case-insensitive; unmatched names pass through trimmed.
var cropSynonyms = map[string]string{
	"rice":       "Rice",
	"paddy":      "Rice",
	"dhan":       "Rice",
	"chawal":     "Rice",
	"wheat":      "Wheat",
	"gehu":       "Wheat",
	"gehun":      "Wheat",
	"maize":      "Maize",
	"corn":       "Maize",
	"makka":      "Maize",
	"makai":      "Maize",
	"cotton":     "Cotton",
	"kapas":      "Cotton",
	"sugarcane":  "Sugarcane",
	"ganna":      "Sugarcane",
	"soybean":    "Soybean",
	"soyabean":   "Soybean",
	"soya":       "Soybean",
	"millet":     "Millet",
	"bajra":      "Millet",
	"jowar":      "Sorghum",
	"sorghum":    "Sorghum",
	"groundnut":  "Groundnut",
	"peanut":     "Groundnut",
	"mungfali":   "Groundnut",
	"mustard":    "Mustard",
	"sarson":     "Mustard",
	"potato":     "Potato",
	"aloo":       "Potato",
	"onion":      "Onion",
	"pyaz":       "Onion",
	"gram":       "Chickpea",
	"chana":      "Chickpea",
	"chickpea":   "Chickpea",
	"lentil":     "Lentil",
	"masoor":     "Lentil",
	"pigeonpea":  "Pigeon Pea",
	"arhar":      "Pigeon Pea",
	"tur":        "Pigeon Pea",
	"barley":     "Barley",
	"jau":        "Barley",
	"tea":        "Tea",
	"coffee":     "Coffee",
	"jute":       "Jute",
	"tobacco":    "Tobacco",
	"rapeseed":   "Mustard",
	"sunflower":  "Sunflower",
	"surajmukhi": "Sunflower",
}

var soilSynonyms = map[string]string{
	"alluvial":    "Alluvial",
	"black":       "Black",
	"regur":       "Black",
	"kali":        "Black",
	"red":         "Red",
	"lal":         "Red",
	"laterite":    "Laterite",
	"sandy":       "Sandy",
	"retili":      "Sandy",
	"loam":        "Loamy",
	"loamy":       "Loamy",
	"domat":       "Loamy",
	"clay":        "Clay",
	"clayey":      "Clay",
	"chikni":      "Clay",
	"silt":        "Silty",
	"silty":       "Silty",
	"saline":      "Saline",
	"peaty":       "Peaty",
	"chalky":      "Chalky",
	"mountainous": "Mountain",
}

// CanonicalCrop maps a crop name to the fixed vocabulary. Unknown names are
// returned trimmed and otherwise unchanged.
func CanonicalCrop(s string) string {
	s = strings.TrimSpace(s)
	if canon, ok := cropSynonyms[strings.ToLower(s)]; ok {
		return canon
	}
	return s
}

// CanonicalSoil maps a soil type the same way CanonicalCrop maps crops.
func CanonicalSoil(s string) string {
	s = strings.TrimSpace(s)
	if canon, ok := soilSynonyms[strings.ToLower(s)]; ok {
		return canon
	}
	return s
}
