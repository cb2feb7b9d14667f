// Package population converts resident population into expected
// smartphone counts and estimates the bleed radius of a broadcast from
// phone density.
package population

import "math"

// AgeBucket maps an age range to the fraction of people in it who own a
// smartphone. MaxAge is inclusive; the last bucket is open-ended. The
// buckets partition [0, ∞).
type AgeBucket struct {
	MinAge    int
	MaxAge    float64
	Ownership float64
}

// SmartphoneOwnershipByAge is the fixed ownership table compiled into
// the binary. Roughly half of under-16s have a phone; ownership then
// falls off with age.
var SmartphoneOwnershipByAge = []AgeBucket{
	{MinAge: 0, MaxAge: 15, Ownership: 0.50},
	{MinAge: 16, MaxAge: 24, Ownership: 1.00},
	{MinAge: 25, MaxAge: 34, Ownership: 0.97},
	{MinAge: 35, MaxAge: 44, Ownership: 0.91},
	{MinAge: 45, MaxAge: 54, Ownership: 0.88},
	{MinAge: 55, MaxAge: 64, Ownership: 0.73},
	{MinAge: 65, MaxAge: math.Inf(1), Ownership: 0.40},
}

// AgeCount is one row of an age-stratified population table.
type AgeCount struct {
	Age    int
	People float64
}

// EstimateSmartphones converts an age-stratified resident population
// into an expected smartphone count.
func EstimateSmartphones(population []AgeCount) float64 {
	var total float64
	for _, bucket := range SmartphoneOwnershipByAge {
		for _, row := range population {
			if float64(row.Age) >= float64(bucket.MinAge) && float64(row.Age) <= bucket.MaxAge {
				total += row.People * bucket.Ownership
			}
		}
	}
	return total
}

// The City of London's resident population drastically understates its
// daytime exposure, so its wards use a daytime-workforce figure scaled
// by the ward's share of the City's area.
const (
	CityOfLondonDaytimePopulation = 553_000
	CityOfLondonAreaSquareMetres  = 2_885_598
)

// cityOfLondonWards is the set of ward codes constituting the City of
// London.
var cityOfLondonWards = map[string]struct{}{
	"E05009288": {}, "E05009289": {}, "E05009290": {}, "E05009291": {},
	"E05009292": {}, "E05009293": {}, "E05009294": {}, "E05009295": {},
	"E05009296": {}, "E05009297": {}, "E05009298": {}, "E05009299": {},
	"E05009300": {}, "E05009301": {}, "E05009302": {}, "E05009303": {},
	"E05009304": {}, "E05009305": {}, "E05009306": {}, "E05009307": {},
	"E05009308": {}, "E05009309": {}, "E05009310": {}, "E05009311": {},
	"E05009312": {},
}

// IsCityOfLondonWard reports whether the ONS code belongs to a City of
// London ward.
func IsCityOfLondonWard(code string) bool {
	_, ok := cityOfLondonWards[code]
	return ok
}

// PoliceForcePhones holds phone counts for police-force areas,
// estimated at ingestion by overlap with electoral wards. They back
// fill catalogue rows that predate the estimate.
var PoliceForcePhones = map[string]float64{
	"pfa23-E23000001": 5517388, // Metropolitan Police
	"pfa23-E23000002": 354402,  // Cumbria
	"pfa23-E23000003": 1166837, // Lancashire
	"pfa23-E23000004": 1067017, // Merseyside
	"pfa23-E23000005": 2168460, // Greater Manchester
	"pfa23-E23000006": 825927,  // Cheshire
	"pfa23-E23000007": 1072422, // Northumbria
	"pfa23-E23000008": 468765,  // Durham
	"pfa23-E23000009": 623984,  // North Yorkshire
	"pfa23-E23000010": 1759386, // West Yorkshire
	"pfa23-E23000011": 1030290, // South Yorkshire
	"pfa23-E23000012": 679111,  // Humberside
	"pfa23-E23000013": 417438,  // Cleveland
	"pfa23-E23000014": 2195745, // West Midlands
	"pfa23-E23000015": 867787,  // Staffordshire
	"pfa23-E23000016": 981758,  // West Mercia
	"pfa23-E23000017": 477813,  // Warwickshire
	"pfa23-E23000018": 803403,  // Derbyshire
	"pfa23-E23000019": 870605,  // Nottinghamshire
	"pfa23-E23000020": 492067,  // Lincolnshire
	"pfa23-E23000021": 845016,  // Leicestershire
	"pfa23-E23000022": 591008,  // Northamptonshire
	"pfa23-E23000023": 383211,  // Cambridgeshire
	"pfa23-E23000024": 668357,  // Norfolk
	"pfa23-E23000025": 551565,  // Suffolk
	"pfa23-E23000026": 534825,  // Bedfordshire
	"pfa23-E23000027": 853966,  // Hertfordshire
	"pfa23-E23000028": 1519509, // Essex
	"pfa23-E23000029": 1904724, // Thames Valley
	"pfa23-E23000030": 1488297, // Hampshire
	"pfa23-E23000031": 915403,  // Surrey
	"pfa23-E23000032": 1359696, // Kent
	"pfa23-E23000033": 889827,  // Sussex
	"pfa23-E23000034": 530154,  // London, City of
	"pfa23-E23000035": 1386440, // Devon & Cornwall
	"pfa23-E23000036": 1293970, // Avon and Somerset
	"pfa23-E23000037": 472878,  // Gloucestershire
	"pfa23-E23000038": 545357,  // Wiltshire
	"pfa23-E23000039": 558286,  // Dorset
	"pfa23-W15000001": 494828,  // North Wales
	"pfa23-W15000002": 431486,  // Gwent
	"pfa23-W15000003": 982699,  // South Wales
	"pfa23-W15000004": 374541,  // Dyfed-Powys
}

// Bleed model parameters. High-density areas tend to be served by
// short-range masts (bleed down to 500m); low-density areas by
// long-range masts (bleed up to 5,000m).
const (
	// ApproxBleedMetres is the fallback bleed when density is unknown
	// or negligible.
	ApproxBleedMetres = 1500

	minBleedMetres = 500
	maxBleedMetres = 5000
)

// EstimatedBleedMetres returns the bleed radius in metres for the given
// phone density in phones per square mile.
func EstimatedBleedMetres(phonesPerSquareMile float64) float64 {
	if phonesPerSquareMile < 1 {
		return ApproxBleedMetres
	}
	bleed := 5900 - math.Log10(phonesPerSquareMile)*1250
	return math.Max(minBleedMetres, math.Min(bleed, maxBleedMetres))
}

// BleedForArea derives the bleed radius from a phone count and an area
// in square metres.
func BleedForArea(phones, areaM2 float64) float64 {
	if areaM2 == 0 {
		return ApproxBleedMetres
	}
	return EstimatedBleedMetres(phones / SquareMetresToSquareMiles(areaM2))
}

// SquareMetresToSquareMiles converts an area in m² to square miles.
func SquareMetresToSquareMiles(areaM2 float64) float64 {
	return areaM2 * 3.86e-7
}

// RoundToSignificantFigures rounds a value to the given number of
// significant figures. All public phone counts are published at one
// significant figure.
func RoundToSignificantFigures(value float64, figures int) int {
	if value == 0 {
		return 0
	}
	magnitude := int(math.Floor(math.Log10(math.Abs(value))))
	scale := math.Pow(10, float64(figures-magnitude-1))
	return int(math.Round(math.Round(value*scale) / scale))
}
