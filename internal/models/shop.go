package models

// ShopItem is a purchasable avatar accessory
type ShopItem struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slot string `db:"slot" json:"slot"`
	Cost int    `db:"cost" json:"cost"`

	Owned bool `db:"-" json:"owned"`
}

// AvatarState is the kid's current look
type AvatarState struct {
	KidID    int64      `json:"kidId"`
	Color    string     `json:"color"`
	Equipped []int64    `json:"equipped"`
	Owned    []ShopItem `json:"owned"`
}
