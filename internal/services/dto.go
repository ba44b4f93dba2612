package services

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/desertthunder/ampsync/internal/models"
)

// flexInt decodes numbers, numeric strings, booleans and null into an int.
//
// Servers disagree on whether flag is a bool or an int and send rating as null when unset.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", `""`, "false":
		*f = 0
		return nil
	case "true":
		*f = 1
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

type attributeDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a attributeDTO) toModel() models.MusicAttribute {
	return models.MusicAttribute{ID: a.ID, Name: a.Name}
}

func toAttributes(dtos []attributeDTO) []models.MusicAttribute {
	if len(dtos) == 0 {
		return nil
	}
	attrs := make([]models.MusicAttribute, 0, len(dtos))
	for _, d := range dtos {
		attrs = append(attrs, d.toModel())
	}
	return attrs
}

type errorDTO struct {
	ErrorCode    flexInt `json:"errorCode"`
	ErrorAction  string  `json:"errorAction"`
	ErrorType    string  `json:"errorType"`
	ErrorMessage string  `json:"errorMessage"`
	Code         flexInt `json:"code"`
	Message      string  `json:"message"`
}

func (e errorDTO) toAPIError() *APIError {
	apiErr := &APIError{
		Code:    int(e.ErrorCode),
		Action:  e.ErrorAction,
		Type:    e.ErrorType,
		Message: e.ErrorMessage,
	}
	if apiErr.Code == 0 {
		apiErr.Code = int(e.Code)
	}
	if apiErr.Message == "" {
		apiErr.Message = e.Message
	}
	return apiErr
}

type envelope struct {
	Error   *errorDTO `json:"error"`
	Success string    `json:"success"`
}

type handshakeDTO struct {
	Auth          string `json:"auth"`
	API           string `json:"api"`
	SessionExpire string `json:"session_expire"`
}

type pingDTO struct {
	Server        string `json:"server"`
	Version       string `json:"version"`
	Compatible    string `json:"compatible"`
	Auth          string `json:"auth"`
	SessionExpire string `json:"session_expire"`
}

type userDTO struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	Access         flexInt `json:"access"`
	StreamToken    string  `json:"streamtoken"`
	FullName       string  `json:"fullname"`
	FullNamePublic flexInt `json:"fullname_public"`
	Disabled       flexInt `json:"disabled"`
	CreateDate     flexInt `json:"create_date"`
	LastSeen       flexInt `json:"last_seen"`
	Website        string  `json:"website"`
	State          string  `json:"state"`
	City           string  `json:"city"`
}

func (u userDTO) toModel() models.User {
	return models.User{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Access:         int(u.Access),
		StreamToken:    u.StreamToken,
		FullName:       u.FullName,
		FullNamePublic: int(u.FullNamePublic),
		Disabled:       u.Disabled == 1,
		CreateDate:     int64(u.CreateDate),
		LastSeen:       int64(u.LastSeen),
		Website:        u.Website,
		State:          u.State,
		City:           u.City,
	}
}

type songDTO struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Name        string         `json:"name"`
	Artist      attributeDTO   `json:"artist"`
	Album       attributeDTO   `json:"album"`
	AlbumArtist attributeDTO   `json:"albumartist"`
	Track       flexInt        `json:"track"`
	Disk        flexInt        `json:"disk"`
	Year        flexInt        `json:"year"`
	Time        flexInt        `json:"time"`
	Genre       []attributeDTO `json:"genre"`
	URL         string         `json:"url"`
	Art         string         `json:"art"`
	Mime        string         `json:"mime"`
	PlayCount   flexInt        `json:"playcount"`
	Flag        flexInt        `json:"flag"`
	Rating      flexInt        `json:"rating"`
}

func (s songDTO) toModel() models.Song {
	title := s.Title
	if title == "" {
		title = s.Name
	}
	return models.Song{
		ID:          s.ID,
		Title:       title,
		Artist:      s.Artist.toModel(),
		Album:       s.Album.toModel(),
		AlbumArtist: s.AlbumArtist.toModel(),
		Track:       int(s.Track),
		Disk:        int(s.Disk),
		Year:        int(s.Year),
		Duration:    int(s.Time),
		Genre:       toAttributes(s.Genre),
		URL:         s.URL,
		Art:         s.Art,
		Mime:        s.Mime,
		PlayCount:   int(s.PlayCount),
		Flag:        int(s.Flag),
		Rating:      int(s.Rating),
	}
}

type albumDTO struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Artist    attributeDTO   `json:"artist"`
	Artists   []attributeDTO `json:"artists"`
	Year      flexInt        `json:"year"`
	SongCount flexInt        `json:"songcount"`
	DiskCount flexInt        `json:"diskcount"`
	Genre     []attributeDTO `json:"genre"`
	Art       string         `json:"art"`
	Flag      flexInt        `json:"flag"`
	Rating    flexInt        `json:"rating"`
}

func (a albumDTO) toModel() models.Album {
	return models.Album{
		ID:        a.ID,
		Name:      a.Name,
		Artist:    a.Artist.toModel(),
		Artists:   toAttributes(a.Artists),
		Year:      int(a.Year),
		SongCount: int(a.SongCount),
		DiskCount: int(a.DiskCount),
		Genre:     toAttributes(a.Genre),
		Art:       a.Art,
		Flag:      int(a.Flag),
		Rating:    int(a.Rating),
	}
}

type artistDTO struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	AlbumCount flexInt        `json:"albumcount"`
	SongCount  flexInt        `json:"songcount"`
	Genre      []attributeDTO `json:"genre"`
	Summary    string         `json:"summary"`
	Art        string         `json:"art"`
	Flag       flexInt        `json:"flag"`
	Rating     flexInt        `json:"rating"`
}

func (a artistDTO) toModel() models.Artist {
	return models.Artist{
		ID:         a.ID,
		Name:       a.Name,
		AlbumCount: int(a.AlbumCount),
		SongCount:  int(a.SongCount),
		Genre:      toAttributes(a.Genre),
		Summary:    a.Summary,
		Art:        a.Art,
		Flag:       int(a.Flag),
		Rating:     int(a.Rating),
	}
}

type ownerDTO string

// UnmarshalJSON accepts the owner either as a plain username or as an {id, name} object.
func (o *ownerDTO) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = ownerDTO(s)
		return nil
	}
	var attr attributeDTO
	if err := json.Unmarshal(data, &attr); err != nil {
		return err
	}
	*o = ownerDTO(attr.Name)
	return nil
}

type playlistDTO struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Owner  ownerDTO `json:"owner"`
	Items  flexInt  `json:"items"`
	Type   string   `json:"type"`
	Art    string   `json:"art"`
	Flag   flexInt  `json:"flag"`
	Rating flexInt  `json:"rating"`
}

func (p playlistDTO) toModel() models.Playlist {
	return models.Playlist{
		ID:     p.ID,
		Name:   p.Name,
		Owner:  string(p.Owner),
		Items:  int(p.Items),
		Type:   p.Type,
		Art:    p.Art,
		Flag:   int(p.Flag),
		Rating: int(p.Rating),
	}
}

type songsResponse struct {
	Songs []songDTO `json:"song"`
}

type albumsResponse struct {
	Albums []albumDTO `json:"album"`
}

type artistsResponse struct {
	Artists []artistDTO `json:"artist"`
}

type playlistsResponse struct {
	Playlists []playlistDTO `json:"playlist"`
}

func mapSlice[D any, M any](dtos []D, fn func(D) M) []M {
	out := make([]M, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, fn(d))
	}
	return out
}
