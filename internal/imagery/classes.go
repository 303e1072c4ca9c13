package imagery

// Classes are the EuroSAT land-cover labels, in model output order.
var Classes = []string{
	"AnnualCrop",
	"Forest",
	"HerbaceousVegetation",
	"Highway",
	"Industrial",
	"Pasture",
	"PermanentCrop",
	"Residential",
	"River",
	"SeaLake",
}

// Prediction is one classifier verdict over a thumbnail.
type Prediction struct {
	Class         string             `json:"class"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}
