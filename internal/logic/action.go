package logic

// Action is what the appliance does in response to a button event.
type Action uint8

const (
	ActionNone Action = iota
	ActionCycleMode
	ActionToggleBacklight
	ActionRefreshStatus
	ActionRestartNetwork
)

func (a Action) String() string {
	switch a {
	case ActionCycleMode:
		return "cycle-mode"
	case ActionToggleBacklight:
		return "toggle-backlight"
	case ActionRefreshStatus:
		return "refresh-status"
	case ActionRestartNetwork:
		return "restart-network"
	default:
		return "none"
	}
}

// ActionFor maps a button event to its action.
//
//	BOOT short -> cycle display mode
//	BOOT long  -> toggle backlight
//	USER short -> refresh status now
//	USER long  -> ask the network manager to restart the link
func ActionFor(ev ButtonEvent) Action {
	switch ev {
	case ShortPress(ButtonBoot):
		return ActionCycleMode
	case LongPress(ButtonBoot):
		return ActionToggleBacklight
	case ShortPress(ButtonUser):
		return ActionRefreshStatus
	case LongPress(ButtonUser):
		return ActionRestartNetwork
	default:
		return ActionNone
	}
}
