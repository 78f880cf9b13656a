package server

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	apphttp "github.com/tracklet/appkit/http"
)

// browserUA makes the upstream sites serve the same markup a browser gets.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	videoIDPattern = regexp.MustCompile(`"videoId":"([a-zA-Z0-9_-]{11})"`)
	titlePattern   = regexp.MustCompile(`<title>(.+?)</title>`)
)

// fetchHTML GETs a page with a browser user agent.
func (s *Server) fetchHTML(target string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ── MyAnimeList proxy ────────────────────────────────────────────────────────

// handleAnimeListProxy fetches a user's anime list page so the SPA can
// scrape it without hitting cross-origin restrictions.
func (s *Server) handleAnimeListProxy(w http.ResponseWriter, r *http.Request) {
	req := apphttp.NewRequest(r)
	res := apphttp.NewResponse(w)

	username := req.Query("username", "")
	if username == "" {
		res.Error(http.StatusBadRequest, "Missing username parameter")
		return
	}
	status := req.Query("status", "1")

	target := fmt.Sprintf("https://myanimelist.net/animelist/%s?status=%s",
		url.PathEscape(username), url.QueryEscape(status))
	html, err := s.fetchHTML(target)
	if err != nil {
		res.ServerError("Error fetching MAL page: " + err.Error())
		return
	}
	res.JSON(http.StatusOK, map[string]any{"html": html})
}

// handleAnimeProxy fetches a single anime page by id.
func (s *Server) handleAnimeProxy(w http.ResponseWriter, r *http.Request) {
	req := apphttp.NewRequest(r)
	res := apphttp.NewResponse(w)

	animeID := req.Query("id", "")
	if animeID == "" {
		res.Error(http.StatusBadRequest, "Missing anime id parameter")
		return
	}

	html, err := s.fetchHTML("https://myanimelist.net/anime/" + url.PathEscape(animeID))
	if err != nil {
		res.ServerError("Error fetching MAL page: " + err.Error())
		return
	}
	res.JSON(http.StatusOK, map[string]any{"html": html})
}

// ── YouTube playlist scraping ────────────────────────────────────────────────

// playlistResult mirrors the original scrape-playlist response shape.
// Failures also return 200 with success=false, which the SPA expects.
type playlistResult struct {
	Success      bool     `json:"success"`
	PlaylistID   string   `json:"playlistId,omitempty"`
	PlaylistName string   `json:"playlistName,omitempty"`
	VideoIDs     []string `json:"videoIds,omitempty"`
	VideoCount   int      `json:"videoCount"`
	Error        string   `json:"error,omitempty"`
}

func (s *Server) handlePlaylistScrape(w http.ResponseWriter, r *http.Request) {
	req := apphttp.NewRequest(r)
	res := apphttp.NewResponse(w)

	playlistID := req.Query("id", "")
	if playlistID == "" {
		res.Error(http.StatusBadRequest, "Missing playlist id parameter")
		return
	}

	html, err := s.fetchHTML("https://www.youtube.com/playlist?list=" + url.QueryEscape(playlistID))
	if err != nil {
		res.JSON(http.StatusOK, playlistResult{
			Success: false,
			Error:   "Failed to fetch playlist: " + err.Error(),
		})
		return
	}

	name := playlistID
	if m := titlePattern.FindStringSubmatch(html); m != nil {
		name = strings.TrimSpace(strings.ReplaceAll(m[1], " - YouTube", ""))
	}

	ids := extractVideoIDs(html, 100)
	res.JSON(http.StatusOK, playlistResult{
		Success:      true,
		PlaylistID:   playlistID,
		PlaylistName: name,
		VideoIDs:     ids,
		VideoCount:   len(ids),
	})
}

// extractVideoIDs pulls unique video ids out of the playlist markup in
// first-seen order, capped to keep pathological pages bounded.
func extractVideoIDs(html string, limit int) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range videoIDPattern.FindAllStringSubmatch(html, -1) {
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) >= limit {
			break
		}
	}
	return ids
}
