// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tool

import (
	"bytes"
	"encoding/json"
)

const (
	weatherUnavailable    = "Weather data not available for this location."
	restaurantUnavailable = "Restaurant data not available for this location."
)

// mock 数据，键区分大小写
var weatherData = map[string]string{
	"New York": "Sunny, 25°C",
	"London":   "Cloudy, 18°C",
	"Tokyo":    "Rainy, 22°C",
}

var restaurantData = map[string]string{
	"New York": "Tatiana by Kwame Onwuachi, Katz’s Delicatessen, Peter Luger Steakhouse, Sylvia's, Nathan's Famous",
	"London":   "St. JOHN, Señor Ceviche, Gloria and Circolo Popolare, Normah's, Bouchon Racine",
	"Tokyo":    "Chanko & Wanko Restaurant Asakusa Sumo Club, Sky Restaurant 634 Musashi, Ichiran, Shibuya, Rokkasen Otakibashiidori, Hakushu - Kobe Teppanyaki",
}

var budgetData = map[string]string{
	"New York": `
            Budget Travelers: Around $121 per day. This includes staying in hostels, eating at budget restaurants, and using public transportation.
            Mid-Range Travelers: Approximately $324 per day. This covers mid-range hotels, dining at average restaurants, and some paid attractions.
            Luxury Travelers: About $923 per day. This includes luxury hotels, fine dining, and private transportation.
        `,
	"London": `
            Budget Travelers: Around $75 per day. This includes staying in hostels, cooking your own meals, and using public transport.
            Mid-Range Travelers: Approximately $195 per day. This covers mid-range hotels, dining at average restaurants, and some paid attractions.
            Luxury Travelers: About $517 per day. This includes luxury hotels, fine dining, and private transportation.
        `,
	"Tokyo": `
            Budget Travelers: Around $100 per day. This includes staying in hostels, eating at budget restaurants, and using public transportation.
            Mid-Range Travelers: Approximately $286 per day. This covers mid-range hotels, dining at average restaurants, and some paid attractions.
            Luxury Travelers: About $908 per day. This includes luxury hotels, fine dining, and private transportation.
        `,
}

// budgetCities FetchBudget 输出中城市的顺序
var budgetCities = []string{"New York", "London", "Tokyo"}

// FetchWeather 返回 {"weather": ...}；未知地点返回固定提示
func FetchWeather(location string) string {
	weather, ok := weatherData[location]
	if !ok {
		weather = weatherUnavailable
	}
	return singleKeyJSON("weather", weather)
}

// FetchRestaurant 返回 {"restaurant": ...}；未知地点返回固定提示
func FetchRestaurant(location string) string {
	restaurant, ok := restaurantData[location]
	if !ok {
		restaurant = restaurantUnavailable
	}
	return singleKeyJSON("restaurant", restaurant)
}

// FetchBudget 返回 {"budget": {city: text}}，包含全部三个城市
func FetchBudget() string {
	var buf bytes.Buffer
	buf.WriteString(`{"budget": {`)
	for i, city := range budgetCities {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeString(&buf, city)
		buf.WriteString(": ")
		writeString(&buf, budgetData[city])
	}
	buf.WriteString("}}")
	return buf.String()
}

// singleKeyJSON 输出 {"key": "value"}，分隔符为 ", " 与 ": "
func singleKeyJSON(key, value string) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeString(&buf, key)
	buf.WriteString(": ")
	writeString(&buf, value)
	buf.WriteByte('}')
	return buf.String()
}

// writeString 写入 JSON 字符串；不转义 HTML 字符，"&" 与非 ASCII 字符原样输出
func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	// string 编码不会失败
	_ = enc.Encode(s)
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
}
