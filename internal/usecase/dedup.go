package usecase

import "FeedDigest/internal/domain"

// Deduplicate keeps candidates whose URL is not in existing, in input order.
// A URL offered by more than one feed in the same run is kept once.
func Deduplicate(items []domain.CandidateItem, existing map[string]struct{}) []domain.CandidateItem {
	novel := make([]domain.CandidateItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := existing[item.URL]; ok {
			continue
		}
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		novel = append(novel, item)
	}
	return novel
}

func candidateURLs(items []domain.CandidateItem) []string {
	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}
	return urls
}
