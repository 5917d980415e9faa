package catalog

import "github.com/patric-chuzhbe/catfinder/internal/models"

// FindByID returns the breed with the given catalog id.
func FindByID(breeds []models.Breed, id string) (models.Breed, bool) {
	for _, breed := range breeds {
		if breed.ID == id {
			return breed, true
		}
	}

	return models.Breed{}, false
}

// ResolveFavorites maps stored favorite names to catalog records, in the order
// of names. A name matches a breed's name or id; names the catalog no longer
// knows are skipped.
func ResolveFavorites(breeds []models.Breed, names []string) []models.Breed {
	result := make([]models.Breed, 0, len(names))
	for _, name := range names {
		for _, breed := range breeds {
			if breed.Name == name || breed.ID == name {
				result = append(result, breed)
				break
			}
		}
	}

	return result
}
