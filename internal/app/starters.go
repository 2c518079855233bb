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

package app

// Starter 聊天界面上的快捷提问
type Starter struct {
	Label   string `json:"label"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
}

var defaultStarters = []Starter{
	{Label: "Weather Queries", Message: "What is the weather like in New York?", Icon: "/public/weather.svg"},
	{Label: "Restaurant Recommendations", Message: "What are some good restaurants in London?", Icon: "/public/food.svg"},
	{Label: "Budget Information", Message: "How much does it cost to travel to Tokyo?", Icon: "/public/money.svg"},
	{Label: "Budget Recommendations", Message: "If I have a budget of $300 for 4 days, where should I travel?", Icon: "/public/calculator.svg"},
	{Label: "Suitcase Products", Message: "What suitcases do you have?", Icon: "/public/suitcase.svg"},
	{Label: "Handcarry Bags", Message: "Do you have any bags available?", Icon: "/public/briefcase.svg"},
}

// Starters 返回快捷提问列表的副本
func Starters() []Starter {
	out := make([]Starter, len(defaultStarters))
	copy(out, defaultStarters)
	return out
}
