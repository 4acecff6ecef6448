package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"binge-player/config"
	"binge-player/models"
	"binge-player/utils"
)

// ErrEpisodeNotFound is returned when an episode is not in the show's list.
var ErrEpisodeNotFound = errors.New("episode not found")

// episodeIDRe matches IDs such as "Show_S01E02".
var episodeIDRe = regexp.MustCompile(`_?S(\d+)E(\d+)$`)

// EpisodeService handles episode list and subtitle file lookups
type EpisodeService struct {
	config *config.Config
}

// NewEpisodeService creates a new episode service
func NewEpisodeService(config *config.Config) *EpisodeService {
	return &EpisodeService{
		config: config,
	}
}

// GetShowInfo returns the show information including all episodes
func (s *EpisodeService) GetShowInfo() (*models.ShowInfoResponse, error) {
	episodes, err := s.GetAllEpisodes()
	if err != nil {
		log.Printf("GetShowInfo: Error getting episodes: %v", err)
		return nil, fmt.Errorf("failed to get episodes: %w", err)
	}

	log.Printf("GetShowInfo: Found %d episodes", len(episodes))
	return &models.ShowInfoResponse{
		Episodes: episodes,
	}, nil
}

// GetAllEpisodes returns all episodes from all seasons by reading JSON
// files, ordered by ID.
func (s *EpisodeService) GetAllEpisodes() ([]models.EpisodeInfo, error) {
	var allEpisodes []models.EpisodeInfo

	if !utils.FileExists(s.config.SeasonsDir) {
		log.Printf("GetAllEpisodes: Seasons directory not found: %s", s.config.SeasonsDir)
		return allEpisodes, nil
	}

	jsonFiles, err := utils.FindFiles(s.config.SeasonsDir, "*.json")
	if err != nil {
		log.Printf("GetAllEpisodes: Error finding JSON files: %v", err)
		return nil, fmt.Errorf("failed to find JSON files: %w", err)
	}

	for _, jsonFile := range jsonFiles {
		var episodes []models.EpisodeInfo
		if err := utils.ReadJSON(jsonFile, &episodes); err != nil {
			// Skip files that can't be read or parsed
			log.Printf("GetAllEpisodes: Error reading JSON file %s: %v", jsonFile, err)
			continue
		}
		allEpisodes = append(allEpisodes, episodes...)
	}

	for i := range allEpisodes {
		if allEpisodes[i].EpisodeNumber == 0 {
			if _, n, err := parseEpisodeID(allEpisodes[i].ID); err == nil {
				allEpisodes[i].EpisodeNumber = n
			}
		}
	}

	sort.SliceStable(allEpisodes, func(i, j int) bool {
		return allEpisodes[i].ID < allEpisodes[j].ID
	})

	log.Printf("GetAllEpisodes: Total episodes found: %d", len(allEpisodes))
	return allEpisodes, nil
}

// GetEpisode returns the episode with the given ID.
func (s *EpisodeService) GetEpisode(episodeID string) (models.EpisodeInfo, error) {
	episodes, err := s.GetAllEpisodes()
	if err != nil {
		return models.EpisodeInfo{}, err
	}
	episode, ok := lo.Find(episodes, func(e models.EpisodeInfo) bool {
		return e.ID == episodeID
	})
	if !ok {
		return models.EpisodeInfo{}, fmt.Errorf("%w: %s", ErrEpisodeNotFound, episodeID)
	}
	return episode, nil
}

// FindNextEpisode returns the episode after current. The last episode of the
// show has no successor.
func (s *EpisodeService) FindNextEpisode(ctx context.Context, current models.VideoData) (models.NextEpisodeContext, error) {
	if err := ctx.Err(); err != nil {
		return models.NextEpisodeContext{}, err
	}

	episodes, err := s.GetAllEpisodes()
	if err != nil {
		return models.NextEpisodeContext{}, err
	}

	_, index, found := lo.FindIndexOf(episodes, func(e models.EpisodeInfo) bool {
		if current.EpisodeID != "" {
			return e.ID == current.EpisodeID
		}
		return current.EpisodeNumber > 0 && e.EpisodeNumber == current.EpisodeNumber
	})
	if !found {
		log.Printf("FindNextEpisode: Current episode %q (#%d) not in list", current.EpisodeID, current.EpisodeNumber)
		return models.NextEpisodeContext{}, fmt.Errorf("%w: %s", ErrEpisodeNotFound, current.EpisodeID)
	}

	if index == len(episodes)-1 {
		log.Printf("FindNextEpisode: %s is the last episode", episodes[index].ID)
		return models.NextEpisodeContext{}, nil
	}

	next := episodes[index+1]
	log.Printf("FindNextEpisode: Next episode after %s is %s", episodes[index].ID, next.ID)
	return models.NextEpisodeContext{
		HasNext:       true,
		NextEpisodeID: next.ID,
		NextTitle:     next.Title,
	}, nil
}

// GetEpisodeSubtitlePath returns the file path for an episode's subtitle
func (s *EpisodeService) GetEpisodeSubtitlePath(episodeID string) (string, error) {
	season, episode, err := parseEpisodeID(episodeID)
	if err != nil {
		log.Printf("GetEpisodeSubtitlePath: %v", err)
		return "", err
	}

	seasonDir := filepath.Join(s.config.SubtitlesDir, fmt.Sprintf("season-%02d", season))
	if !utils.FileExists(seasonDir) {
		log.Printf("GetEpisodeSubtitlePath: Subtitle directory not found: %s", seasonDir)
		return "", fmt.Errorf("subtitle directory not found: %s", seasonDir)
	}

	episodeFileName := fmt.Sprintf("episode-%02d", episode)
	for _, ext := range []string{".vtt", ".srt"} {
		filePath := filepath.Join(seasonDir, episodeFileName+ext)
		if utils.FileExists(filePath) {
			return filePath, nil
		}
	}

	// Fall back to any subtitle file whose name mentions the episode
	subtitleFiles, err := utils.FindFiles(seasonDir, s.config.SubtitleFilePattern)
	if err != nil {
		log.Printf("GetEpisodeSubtitlePath: Error finding subtitle files in %s: %v", seasonDir, err)
		return "", err
	}
	for _, subtitleFile := range subtitleFiles {
		baseName := strings.TrimSuffix(filepath.Base(subtitleFile), filepath.Ext(subtitleFile))
		if strings.Contains(baseName, episodeFileName) {
			log.Printf("GetEpisodeSubtitlePath: Found partial match: %s", subtitleFile)
			return subtitleFile, nil
		}
	}

	log.Printf("GetEpisodeSubtitlePath: No subtitle file found for episode: %s", episodeID)
	return "", fmt.Errorf("subtitle file not found for episode: %s", episodeID)
}

// LoadSubtitle reads the local subtitle file for an episode.
func (s *EpisodeService) LoadSubtitle(episodeID string) (string, error) {
	path, err := s.GetEpisodeSubtitlePath(episodeID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read subtitle %s: %w", path, err)
	}
	return string(data), nil
}

// parseEpisodeID extracts the season and episode numbers from IDs of the
// form "Show_S01E02".
func parseEpisodeID(episodeID string) (season, episode int, err error) {
	m := episodeIDRe.FindStringSubmatch(episodeID)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid episode ID format: %q", episodeID)
	}
	season, _ = strconv.Atoi(m[1])
	episode, _ = strconv.Atoi(m[2])
	return season, episode, nil
}

// showName returns the show part of an episode ID, "Show" for "Show_S01E02".
func showName(episodeID string) string {
	if name := episodeIDRe.ReplaceAllString(episodeID, ""); name != "" {
		return name
	}
	return episodeID
}
