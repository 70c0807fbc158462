package core

import "context"

// UserProfile 是用户画像。
type UserProfile struct {
	UserID    string `json:"user_id"`
	Age       int    `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Location  string `json:"location,omitempty"`
	StylePref string `json:"style_pref,omitempty"` // casual / luxury / streetwear / minimalist ...
}

// ItemMeta 是物品元数据，用于内容通道的风格加权与推荐解释。
type ItemMeta struct {
	ItemID      string  `json:"item_id"`
	Brand       string  `json:"brand,omitempty"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Collection  string  `json:"collection,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

// StaticProfiles 是内存中的用户画像集合。
type StaticProfiles map[string]*UserProfile

func (p StaticProfiles) UserProfile(_ context.Context, userID string) (*UserProfile, bool, error) {
	profile, ok := p[userID]
	return profile, ok, nil
}

// StaticMetadata 是内存中的物品元数据集合。
type StaticMetadata map[string]*ItemMeta

func (m StaticMetadata) ItemMeta(_ context.Context, itemID string) (*ItemMeta, bool, error) {
	meta, ok := m[itemID]
	return meta, ok, nil
}
