package protocol

import (
	"encoding/binary"
)

// gameStateWireSize is the packed size of Payload_GameState on the
// wire: boss_hp,max_hp,online_count int32 (12) + stage,is_respawning,
// is_crit,is_lucky uint8 (4) + last_player_damage,last_boss_dice,
// last_player_streak,dmg_taken int32 (16) + last_killer[32].
const gameStateWireSize = 12 + 4 + 16 + MaxUsernameLen

// JoinPayload is the OP_JOIN body: a fixed, NUL-padded username.
type JoinPayload struct {
	Username string
}

// EncodeJoin marshals a JoinPayload into its fixed-size wire form.
func EncodeJoin(p JoinPayload) []byte {
	buf := make([]byte, MaxUsernameLen)
	copy(buf, p.Username)
	return buf
}

// DecodeJoin unmarshals a fixed-size OP_JOIN body.
func DecodeJoin(payload []byte) (JoinPayload, bool) {
	if len(payload) != MaxUsernameLen {
		return JoinPayload{}, false
	}
	return JoinPayload{Username: cString(payload)}, true
}

// AttackPayload is the OP_ATTACK body: a client-suggested dice roll
// the server is free to override.
type AttackPayload struct {
	Damage int32
}

func EncodeAttack(p AttackPayload) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(p.Damage))
	return buf
}

func DecodeAttack(payload []byte) (AttackPayload, bool) {
	if len(payload) != 4 {
		return AttackPayload{}, false
	}
	return AttackPayload{Damage: int32(binary.LittleEndian.Uint32(payload))}, true
}

// JoinRespPayload is the OP_JOIN_RESP body.
type JoinRespPayload struct {
	PlayerID int32
	Status   uint8
}

func EncodeJoinResp(p JoinRespPayload) []byte {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.PlayerID))
	buf[4] = p.Status
	return buf
}

func DecodeJoinResp(payload []byte) (JoinRespPayload, bool) {
	if len(payload) != 5 {
		return JoinRespPayload{}, false
	}
	return JoinRespPayload{
		PlayerID: int32(binary.LittleEndian.Uint32(payload[0:4])),
		Status:   payload[4],
	}, true
}

// ErrorPayload is the OP_ERROR body. No server component sends it;
// every failure simply closes the connection.
type ErrorPayload struct {
	Message string
}

func EncodeError(p ErrorPayload) []byte {
	buf := make([]byte, MaxErrorLen)
	copy(buf, p.Message)
	return buf
}

func DecodeError(payload []byte) (ErrorPayload, bool) {
	if len(payload) != MaxErrorLen {
		return ErrorPayload{}, false
	}
	return ErrorPayload{Message: cString(payload)}, true
}

// GameStatePayload is the full OP_GAME_STATE snapshot sent to clients.
type GameStatePayload struct {
	BossHP            int32
	MaxHP             int32
	OnlineCount       int32
	Stage             uint8
	IsRespawning      uint8
	IsCrit            uint8
	IsLucky           uint8
	LastPlayerDamage  int32
	LastBossDice      int32
	LastPlayerStreak  int32
	DmgTaken          int32
	LastKiller        string
}

func EncodeGameState(p GameStatePayload) []byte {
	buf := make([]byte, gameStateWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.BossHP))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.MaxHP))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.OnlineCount))
	buf[12] = p.Stage
	buf[13] = p.IsRespawning
	buf[14] = p.IsCrit
	buf[15] = p.IsLucky
	binary.LittleEndian.PutUint32(buf[16:20], uint32(p.LastPlayerDamage))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(p.LastBossDice))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(p.LastPlayerStreak))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(p.DmgTaken))
	copy(buf[32:32+MaxUsernameLen], p.LastKiller)
	return buf
}

func DecodeGameState(payload []byte) (GameStatePayload, bool) {
	if len(payload) != gameStateWireSize {
		return GameStatePayload{}, false
	}
	return GameStatePayload{
		BossHP:           int32(binary.LittleEndian.Uint32(payload[0:4])),
		MaxHP:            int32(binary.LittleEndian.Uint32(payload[4:8])),
		OnlineCount:      int32(binary.LittleEndian.Uint32(payload[8:12])),
		Stage:            payload[12],
		IsRespawning:     payload[13],
		IsCrit:           payload[14],
		IsLucky:          payload[15],
		LastPlayerDamage: int32(binary.LittleEndian.Uint32(payload[16:20])),
		LastBossDice:     int32(binary.LittleEndian.Uint32(payload[20:24])),
		LastPlayerStreak: int32(binary.LittleEndian.Uint32(payload[24:28])),
		DmgTaken:         int32(binary.LittleEndian.Uint32(payload[28:32])),
		LastKiller:       cString(payload[32 : 32+MaxUsernameLen]),
	}, true
}

// cString trims a NUL-padded fixed buffer down to its Go string
// content.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
