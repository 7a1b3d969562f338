// Package dataset writes the training and evaluation manifests consumed by
// the audio classifier training scripts.
package dataset

const (
	TrainingFile = "training.json"
	EvalFile     = "eval.json"
)

// Entry is one labeled clip in a manifest.
type Entry struct {
	VideoID string `json:"video_id"`
	Wav     string `json:"wav"`
	Labels  string `json:"labels"`
}

// Manifest is the on-disk layout of training.json and eval.json.
type Manifest struct {
	Data []Entry `json:"data"`
}

// Summary reports what a build wrote.
type Summary struct {
	Exports      int    `json:"exports"`
	Training     int    `json:"training"`
	Eval         int    `json:"eval"`
	MissingClips int    `json:"missingClips"`
	OutputDir    string `json:"outputDir"`
}
