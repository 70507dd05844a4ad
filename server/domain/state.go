package domain

import "fmt"

// State はセッションのライフサイクル状態です。
type State uint8

const (
	// StatePreparing は登録済みだがパイプラインの構築が終わっていない状態です。
	StatePreparing State = iota
	// StateOpen はチャネルが開いていて、受信メッセージを処理できる状態です。
	StateOpen
	// StateClosed はチャネルが閉じた状態です。再利用されることはありません。
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}
