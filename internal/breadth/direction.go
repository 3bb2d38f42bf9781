// Package breadth 统计市场宽度（宇宙内 24h 上涨币种数量）并维护带滞回的趋势状态。
package breadth

// Direction 是锁存的市场宽度状态。
type Direction int

const (
	Neutral Direction = 0
	Up      Direction = 1
	Down    Direction = -1
)

// FlipThreshold 是两次采样间上涨数量变化触发状态切换的最小幅度。
const FlipThreshold = 3

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "neutral"
	}
}

// nextDirection 由当前状态与上涨数量变化得到新状态。
// |diff| < FlipThreshold 时状态保持不变。
func nextDirection(cur Direction, diff int) Direction {
	switch cur {
	case Up:
		if diff <= -FlipThreshold {
			return Down
		}
		return Up
	case Down:
		if diff >= FlipThreshold {
			return Up
		}
		return Down
	default:
		if diff >= FlipThreshold {
			return Up
		}
		if diff <= -FlipThreshold {
			return Down
		}
		return Neutral
	}
}
