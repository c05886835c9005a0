package collector

import (
	"context"
	"log"

	"slds/internal/config"
	"slds/internal/ids"
	"slds/internal/riot"

	"github.com/bits-and-blooms/bloom/v3"
)

// MatchLister lists recent match ids of an account. *riot.Client implements it.
type MatchLister interface {
	GetMatchIDsByPUUID(ctx context.Context, platform, puuid string, count int) ([]string, error)
}

// CrawlAccounts collects the recent Solo Queue games of every account.
// Accounts whose history cannot be fetched are logged and skipped. Repeated
// accounts are crawled once and games shared by several accounts are
// returned once, in discovery order. A bloom false positive drops a game from
// this pass only; the next crawl reconciles it again.
func CrawlAccounts(ctx context.Context, lister MatchLister, league *config.League, accounts []string) ([]ids.GameID, error) {
	count := league.MatchesPerAccount
	if count <= 0 {
		count = config.DefaultMatchesPerAccount
	}

	visitedGames := bloom.NewWithEstimates(uint(len(accounts)*count+1), 0.001)
	visitedAccounts := bloom.NewWithEstimates(uint(len(accounts)+1), 0.001)

	var out []ids.GameID
	for i, puuid := range accounts {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if visitedAccounts.TestOrAddString(puuid) {
			log.Printf("[Crawl] Account %d/%d (%s) already crawled, skipping", i+1, len(accounts), shorten(puuid))
			continue
		}
		matchIDs, err := lister.GetMatchIDsByPUUID(ctx, league.Region, puuid, count)
		if err != nil {
			log.Printf("[Crawl] Failed to fetch match history for account %d/%d (%s): %v",
				i+1, len(accounts), shorten(puuid), err)
			continue
		}

		added := 0
		for _, matchID := range matchIDs {
			if visitedGames.TestOrAddString(matchID) {
				continue
			}
			_, gameID, err := riot.SplitMatchID(matchID)
			if err != nil {
				log.Printf("[Crawl] %v (skipping)", err)
				continue
			}
			out = append(out, ids.NewSimple(gameID))
			added++
		}
		log.Printf("[Crawl] Account %d/%d (%s): %d matches, %d new", i+1, len(accounts), shorten(puuid), len(matchIDs), added)
	}
	return out, nil
}

func shorten(puuid string) string {
	if len(puuid) > 16 {
		return puuid[:16]
	}
	return puuid
}
