package rawg

import "math"

// popularity ranks games by community signal:
//
//	rating × 10 on the raw 0-5 scale
//	+1 per 100 ratings (max 40)
//	+2 per year since 2015 (max 20)
//	+15 with cover art
//	+2 per platform (max 20)
func popularity(rating float64, ratingsCount, year int, hasCover bool, platforms int) float64 {
	total := rating * 10
	total += math.Min(float64(ratingsCount)/100, 40)
	if year >= 2015 {
		total += math.Min(float64(year-2015)*2, 20)
	}
	if hasCover {
		total += 15
	}
	total += math.Min(float64(platforms)*2, 20)
	return total
}
