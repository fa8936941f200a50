package domain

import "time"

// RobotCommandType is the kind of AMR job requested
type RobotCommandType string

const (
	RobotCommandDesignatedTransfer RobotCommandType = "DESIGNATED_TRANSFER"
	RobotCommandResidualTransfer   RobotCommandType = "RESIDUAL_TRANSFER"
)

// RobotMove asks a robot to carry one container to one slot
type RobotMove struct {
	ContainerID string `json:"containerId"`
	SlotID      SlotID `json:"slotId"`
}

// RobotCommand is sent fire-and-forget to the robot dispatch sink
type RobotCommand struct {
	CommandID string           `json:"commandId"`
	Type      RobotCommandType `json:"type"`
	OrderID   string           `json:"orderId"`
	ItemCode  string           `json:"itemCode"`
	Moves     []RobotMove      `json:"moves"`
	IssuedAt  time.Time        `json:"issuedAt"`
}

// DesignatedMoves returns one move per committed pallet
func DesignatedMoves(d *DesignatedTransfer) []RobotMove {
	moves := make([]RobotMove, len(d.Allocations))
	for i, a := range d.Allocations {
		moves[i] = RobotMove{ContainerID: a.PalletID, SlotID: a.SlotID}
	}
	return moves
}
