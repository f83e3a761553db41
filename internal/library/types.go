package library

import "strings"

// Fingerprint is a typed content identifier attached to a file record.
type Fingerprint struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// File is the nested file record of a scene. Only the first file of a
// scene is ever processed.
type File struct {
	ID           string        `json:"id"`
	Path         string        `json:"path"`
	Fingerprints []Fingerprint `json:"fingerprints"`
}

// ScenePaths carries the generated-asset URLs the service exposes for a
// scene. Screenshot is the current cover image.
type ScenePaths struct {
	Screenshot string `json:"screenshot"`
}

// Scene is one media record as returned by the find query.
type Scene struct {
	ID    string     `json:"id"`
	Files []File     `json:"files"`
	Paths ScenePaths `json:"paths"`
}

// StableHash returns the scene's first file's fingerprint of the given
// type, or "" when absent.
func (s Scene) StableHash(fpType string) string {
	if len(s.Files) == 0 {
		return ""
	}
	for _, fp := range s.Files[0].Fingerprints {
		if strings.EqualFold(fp.Type, fpType) {
			return fp.Value
		}
	}
	return ""
}

// ScenePage is one page of eligible scenes plus the total number of
// scenes matching the selection filter.
type ScenePage struct {
	Count  int     `json:"count"`
	Scenes []Scene `json:"scenes"`
}

// findFilter mirrors the service's paging and sorting argument.
type findFilter struct {
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
	PerPage   int    `json:"per_page"`
	Page      int    `json:"page,omitempty"`
}

type stringCriterion struct {
	Value    string `json:"value"`
	Modifier string `json:"modifier"`
}

type multiCriterion struct {
	Value    []string `json:"value"`
	Modifier string   `json:"modifier"`
}

// sceneFilter is the fixed selection predicate: hash still missing and
// none of the workflow tags applied.
type sceneFilter struct {
	PHash stringCriterion `json:"phash"`
	Tags  multiCriterion  `json:"tags"`
}

type bulkUpdateIDs struct {
	IDs  []string `json:"ids"`
	Mode string   `json:"mode"`
}

type bulkSceneUpdateInput struct {
	IDs    []string      `json:"ids"`
	TagIDs bulkUpdateIDs `json:"tag_ids"`
}

type setFingerprintsInput struct {
	ID           string        `json:"id"`
	Fingerprints []Fingerprint `json:"fingerprints"`
}

type sceneUpdateInput struct {
	ID         string `json:"id"`
	CoverImage string `json:"cover_image"`
}
