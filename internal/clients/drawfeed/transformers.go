package drawfeed

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lottokit/drawgen/internal/domain"
)

const feedDateLayout = "2006-01-02"

// feedDraw is the wire format of one draw result as the feed publishes
// it, both on the REST listing and on the websocket channel.
type feedDraw struct {
	LotteryID      string `json:"lottery_id"`
	ContestID      int64  `json:"contest_id"`
	Date           string `json:"date"`
	Numbers        []int  `json:"numbers"`
	PrizePool      string `json:"prize_pool"`
	JackpotWinners int    `json:"jackpot_winners"`
}

// transformDraw validates and converts a feed entry into a domain draw.
// lotteryID wins over the payload's own lottery_id field; the REST
// listing omits it because the path already names the lottery.
func transformDraw(lotteryID string, raw feedDraw) (domain.Draw, error) {
	if lotteryID == "" {
		lotteryID = raw.LotteryID
	}
	if lotteryID == "" {
		return domain.Draw{}, fmt.Errorf("feed draw missing lottery id")
	}
	if raw.ContestID <= 0 {
		return domain.Draw{}, fmt.Errorf("feed draw for %s has invalid contest id %d", lotteryID, raw.ContestID)
	}
	if len(raw.Numbers) == 0 {
		return domain.Draw{}, fmt.Errorf("feed draw %s/%d has no numbers", lotteryID, raw.ContestID)
	}

	draw := domain.Draw{
		LotteryID:      lotteryID,
		ContestID:      raw.ContestID,
		Numbers:        raw.Numbers,
		JackpotWinners: raw.JackpotWinners,
	}

	if raw.Date != "" {
		parsed, err := time.Parse(feedDateLayout, raw.Date)
		if err != nil {
			return domain.Draw{}, fmt.Errorf("feed draw %s/%d has invalid date %q: %w", lotteryID, raw.ContestID, raw.Date, err)
		}
		draw.Date = parsed
	}

	if raw.PrizePool != "" {
		pool, err := decimal.NewFromString(raw.PrizePool)
		if err != nil {
			return domain.Draw{}, fmt.Errorf("feed draw %s/%d has invalid prize pool %q: %w", lotteryID, raw.ContestID, raw.PrizePool, err)
		}
		draw.PrizePool = pool
	}

	return draw, nil
}
