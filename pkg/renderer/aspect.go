package renderer

import "strings"

// AspectRatio はパネルのアスペクト比の列挙です。
// 未知の値は ParseAspectRatio / Dimensions で square に倒します。
type AspectRatio string

const (
	AspectSquare     AspectRatio = "square"
	AspectWidescreen AspectRatio = "widescreen"
	AspectPortrait   AspectRatio = "portrait"
)

// dimensions はアスペクト比ごとの出力ピクセル寸法です。
var dimensions = map[AspectRatio][2]int{
	AspectSquare:     {2048, 2048},
	AspectWidescreen: {2048, 1152},
	AspectPortrait:   {1536, 2048},
}

// ParseAspectRatio は文字列をアスペクト比に解釈します。未知の値は square です。
func ParseAspectRatio(s string) AspectRatio {
	a := AspectRatio(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := dimensions[a]; !ok {
		return AspectSquare
	}
	return a
}

// Dimensions は出力画像のピクセル寸法を返します。
func (a AspectRatio) Dimensions() (width, height int) {
	d, ok := dimensions[a]
	if !ok {
		d = dimensions[AspectSquare]
	}
	return d[0], d[1]
}
