package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Platform status codes returned in the "code" field of gateway responses.
const (
	CodeOK           = 200
	CodeRateLimited  = 405
	CodeFileExists   = -100
	CodeQRExpired    = 800
	CodeQRWaiting    = 801
	CodeQRScanned    = 802
	CodeQRAuthorized = 803
)

// NamedRef is an artist or album reference in a song detail.
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DetailSong is one song in a /song/detail response.
type DetailSong struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	Artists []NamedRef `json:"ar"`
	Album   NamedRef   `json:"al"`
}

// FirstArtist returns the first listed artist name, or "" when none is listed.
func (s DetailSong) FirstArtist() string {
	if len(s.Artists) == 0 {
		return ""
	}
	return s.Artists[0].Name
}

// Privilege is the per-song permission entry in a /song/detail response.
//
// CloudSuppressed ("cs") marks songs the platform will not store in the cloud locker.
type Privilege struct {
	ID              int64 `json:"id"`
	CloudSuppressed bool  `json:"cs"`
}

// SongDetailResponse is the body of GET /song/detail.
type SongDetailResponse struct {
	Code       int          `json:"code"`
	Message    string       `json:"message,omitempty"`
	Songs      []DetailSong `json:"songs"`
	Privileges []Privilege  `json:"privileges"`
}

// ImportFailure is one entry of data.failed in a /cloud/import response.
type ImportFailure struct {
	Code   int    `json:"code"`
	SongID int64  `json:"songId,omitempty"`
	Msg    string `json:"msg,omitempty"`
}

// CloudImportData is the data object of a /cloud/import response.
type CloudImportData struct {
	SuccessSongs []json.RawMessage `json:"successSongs"`
	Failed       []ImportFailure   `json:"failed"`
}

// CloudImportResponse is the body of GET /cloud/import.
type CloudImportResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    CloudImportData `json:"data"`

	// Raw is the undecoded body, kept for failure details.
	Raw []byte `json:"-"`
}

// QRKeyResponse is the body of GET /login/qr/key.
type QRKeyResponse struct {
	Code int `json:"code"`
	Data struct {
		Code   int    `json:"code"`
		UniKey string `json:"unikey"`
	} `json:"data"`
}

// QRCreateResponse is the body of GET /login/qr/create.
type QRCreateResponse struct {
	Code int `json:"code"`
	Data struct {
		QRURL string `json:"qrurl"`
		QRImg string `json:"qrimg"`
	} `json:"data"`
}

// QRCheckResponse is the body of GET /login/qr/check.
type QRCheckResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Cookie  string `json:"cookie"`
}

// UserCloudResponse is the body of GET /user/cloud.
type UserCloudResponse struct {
	Code    int     `json:"code"`
	Count   int     `json:"count"`
	Size    FlexInt `json:"size"`
	MaxSize FlexInt `json:"maxSize"`
}

// FlexInt decodes an integer the gateway may send either as a JSON number or as a string.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	*f = FlexInt(n)
	return nil
}
