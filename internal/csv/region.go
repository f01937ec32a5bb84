package csv

import "strings"

type prefecture struct {
	name   string
	region string
}

// Chubu is split into Koshinetsu, Hokuriku and Tokai.
var prefectures = []prefecture{
	{"北海道", "北海道"},
	{"青森県", "東北"}, {"岩手県", "東北"}, {"宮城県", "東北"},
	{"秋田県", "東北"}, {"山形県", "東北"}, {"福島県", "東北"},
	{"茨城県", "関東"}, {"栃木県", "関東"}, {"群馬県", "関東"}, {"埼玉県", "関東"},
	{"千葉県", "関東"}, {"東京都", "関東"}, {"神奈川県", "関東"},
	{"山梨県", "甲信越"}, {"長野県", "甲信越"}, {"新潟県", "甲信越"},
	{"富山県", "北陸"}, {"石川県", "北陸"}, {"福井県", "北陸"},
	{"岐阜県", "東海"}, {"静岡県", "東海"}, {"愛知県", "東海"}, {"三重県", "東海"},
	{"滋賀県", "近畿"}, {"京都府", "近畿"}, {"大阪府", "近畿"},
	{"兵庫県", "近畿"}, {"奈良県", "近畿"}, {"和歌山県", "近畿"},
	{"鳥取県", "中国"}, {"島根県", "中国"}, {"岡山県", "中国"}, {"広島県", "中国"}, {"山口県", "中国"},
	{"徳島県", "四国"}, {"香川県", "四国"}, {"愛媛県", "四国"}, {"高知県", "四国"},
	{"福岡県", "九州"}, {"佐賀県", "九州"}, {"長崎県", "九州"}, {"熊本県", "九州"},
	{"大分県", "九州"}, {"宮崎県", "九州"}, {"鹿児島県", "九州"},
	{"沖縄県", "沖縄"},
}

// RegionForAddress returns the region of the first prefecture named in
// address, or "" when none is found. Full prefecture names are matched
// anywhere; names without the 都/府/県 suffix only as a prefix.
func RegionForAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}

	best, bestAt := "", -1
	for _, p := range prefectures {
		if at := strings.Index(address, p.name); at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = p.region, at
		}
	}
	if bestAt >= 0 {
		return best
	}

	for _, p := range prefectures {
		if strings.HasPrefix(address, prefectureStem(p.name)) {
			return p.region
		}
	}
	return ""
}

func prefectureStem(name string) string {
	if name == "北海道" {
		return name
	}
	for _, suffix := range []string{"都", "府", "県"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
