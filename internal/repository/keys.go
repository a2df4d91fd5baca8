package repository

import (
	"strconv"
)

const (
	userSeqKey = "seq:user"
	roomSeqKey = "seq:room"

	gamesKey = "games"
	roomsKey = "rooms"
)

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

func usernameKey(role, username string) string {
	return "user:name:" + role + ":" + username
}

func gameKey(name string) string {
	return "game:" + name
}

func roomKey(id int64) string {
	return "room:" + strconv.FormatInt(id, 10)
}

func reviewsKey(gameName string) string {
	return "reviews:" + gameName
}

func historyKey(userID int64) string {
	return "history:" + strconv.FormatInt(userID, 10)
}
