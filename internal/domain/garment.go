package domain

import "slices"

const (
	// UnknownGarmentType — метка классификатора, когда тип одежды не определён.
	UnknownGarmentType = "Unknown"
	// UnknownGarmentTag — единственный тег записи с типом Unknown.
	UnknownGarmentTag = "Unknown garment type"
)

// GarmentTypes — закрытый набор меток классификатора.
var GarmentTypes = []string{
	"Dress",
	"Top",
	"T-Shirt",
	"Blouse",
	"Shirt",
	"Sweater",
	"Hoodie",
	"Jacket",
	"Coat",
	"Pants",
	"Jeans",
	"Shorts",
	"Skirt",
	"Jumpsuit",
	"Leggings",
	"Swimwear",
	"Activewear",
}

// Garment — результат классификации эмбеддинга.
type Garment struct {
	Type string
	Tags []string
}

// IsKnownGarmentType проверяет, входит ли метка в закрытый набор.
func IsKnownGarmentType(label string) bool {
	return slices.Contains(GarmentTypes, label)
}

// NewGarment нормализует ответ классификатора: метка Unknown или метка вне набора
// превращаются в Unknown с детерминированным тегом, внутренние теги классификатора отбрасываются.
func NewGarment(label string, tags []string) Garment {
	if label == UnknownGarmentType || !IsKnownGarmentType(label) {
		return Garment{Type: UnknownGarmentType, Tags: []string{UnknownGarmentTag}}
	}

	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}

	return Garment{Type: label, Tags: out}
}
