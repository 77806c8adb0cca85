package domain

import (
	"path"
	"strings"
)

// Feed — один фид вендора. Location: путь к файлу, file:// или s3://bucket/key.
type Feed struct {
	Name     string
	Location string
}

// NewFeed создаёт фид, имя которого берётся из последнего сегмента расположения.
func NewFeed(location string) Feed {
	return Feed{
		Name:     path.Base(strings.TrimPrefix(location, "file://")),
		Location: location,
	}
}

// Brand выводит бренд из имени файла фида: "nakd_products.csv" -> "nakd".
func (f Feed) Brand() string {
	name := f.Name
	if trimmed, ok := strings.CutSuffix(name, "_products.csv"); ok {
		return trimmed
	}
	return strings.TrimSuffix(name, ".csv")
}

// FeedRow — результат разбора одной строки фида. Err != nil означает неразборчивую строку.
type FeedRow struct {
	Index   int // номер строки данных, с 1
	Listing ProductListing
	Err     error
}

// FeedData — прочитанный целиком фид.
type FeedData struct {
	Feed Feed
	Rows []FeedRow
}
