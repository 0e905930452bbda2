package chart

const (
	labelPassed = "Успешные тесты"
	labelFailed = "Проваленные тесты"
	colorPassed = "#74b857"
	colorFailed = "#f22b49"
)

// Input is what a run contributes to its chart.
type Input struct {
	Passed         int
	Failed         int
	CollectionName string
}

// Spec is a Chart.js (v2) doughnut config as understood by QuickChart.
type Spec struct {
	Type    string  `json:"type"`
	Options Options `json:"options"`
	Data    Data    `json:"data"`
}

type Options struct {
	Title            Title   `json:"title"`
	Legend           Legend  `json:"legend"`
	Plugins          Plugins `json:"plugins"`
	CutoutPercentage int     `json:"cutoutPercentage"`
	Rotation         float64 `json:"rotation"`
	Circumference    float64 `json:"circumference"`
}

type Title struct {
	Display    bool    `json:"display"`
	Position   string  `json:"position"`
	FontSize   int     `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	FontColor  string  `json:"fontColor"`
	FontStyle  string  `json:"fontStyle"`
	Padding    int     `json:"padding"`
	LineHeight float64 `json:"lineHeight"`
	Text       string  `json:"text"`
}

type Legend struct {
	Display  bool        `json:"display"`
	Position string      `json:"position"`
	Align    string      `json:"align"`
	Labels   LegendLabel `json:"labels"`
}

type LegendLabel struct {
	FontSize   int    `json:"fontSize"`
	FontFamily string `json:"fontFamily"`
	FontColor  string `json:"fontColor"`
	FontStyle  string `json:"fontStyle"`
	Padding    int    `json:"padding"`
}

type Plugins struct {
	DataLabels DataLabels `json:"datalabels"`
}

type DataLabels struct {
	Display         bool   `json:"display"`
	Align           string `json:"align"`
	Anchor          string `json:"anchor"`
	BackgroundColor string `json:"backgroundColor"`
	BorderRadius    int    `json:"borderRadius"`
	Padding         int    `json:"padding"`
	Color           string `json:"color"`
}

type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset values are pointers: a nil entry is sent as null so the renderer
// drops the wedge instead of drawing a zero-width slice.
type Dataset struct {
	Data            []*int   `json:"data"`
	BackgroundColor []string `json:"backgroundColor"`
	BorderColor     string   `json:"borderColor"`
	BorderWidth     float64  `json:"borderWidth"`
}

func NewSpec(in Input) Spec {
	return Spec{
		Type: "doughnut",
		Options: Options{
			Title: Title{
				Display:    true,
				Position:   "top",
				FontSize:   22,
				FontFamily: "sans-serif",
				FontColor:  "#666666",
				FontStyle:  "bold",
				Padding:    10,
				LineHeight: 1.1,
				Text:       in.CollectionName,
			},
			Legend: Legend{
				Display:  true,
				Position: "top",
				Align:    "center",
				Labels: LegendLabel{
					FontSize:   12,
					FontFamily: "sans-serif",
					FontColor:  "#666666",
					FontStyle:  "bold",
					Padding:    10,
				},
			},
			Plugins: Plugins{DataLabels: DataLabels{
				Display:         true,
				Align:           "center",
				Anchor:          "center",
				BackgroundColor: "#eee",
				BorderRadius:    2,
				Padding:         4,
				Color:           "#666666",
			}},
			CutoutPercentage: 80,
			Rotation:         -1.5707963267948966,
			Circumference:    6.283185307179586,
		},
		Data: Data{
			Labels: []string{labelPassed, labelFailed},
			Datasets: []Dataset{{
				Data:            []*int{segment(in.Passed), segment(in.Failed)},
				BackgroundColor: []string{colorPassed, colorFailed},
				BorderColor:     "#ffffff",
				BorderWidth:     1.2,
			}},
		},
	}
}

func segment(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
