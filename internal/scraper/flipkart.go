package scraper

import (
	"net/url"

	"sjsage522/shopcompare/helpers"
	"sjsage522/shopcompare/internal/product"
)

func flipkartConfig() PlatformConfig {
	return PlatformConfig{
		Platform: product.Flipkart,
		BaseURL:  "https://www.flipkart.com",
		SearchURL: func(base, query string, _ SearchOptions) string {
			return base + "/search?q=" + url.QueryEscape(query)
		},
		DetailPath: "/p/itm?pid=%s",
		SelectorSets: []SelectorSet{
			{
				Version:       "2024-data-id",
				Listing:       []string{"div[data-id]"},
				ID:            []string{"@data-id"},
				Name:          []string{"div.KzDlHZ", "a.wjcEIp@title", "a[title]@title"},
				Price:         []string{"div.Nx9bqj", "div._30jeq3"},
				OriginalPrice: []string{"div.yRaY8j", "div._3I9_wc"},
				Rating:        []string{"div.XQDdHH", "div._3LWZlK"},
				Reviews:       []string{"span.Wphh3N", "span._2_R_DZ"},
				Image:         []string{"img.DByuf4@src", `img[src*="rukminim"]@src`},
				Link:          []string{"a.CGtC98@href", `a[href*="/p/"]@href`, `a[href*="pid="]@href`},
			},
			{
				Version:       "legacy-tkid",
				Listing:       []string{"div[data-tkid]", "div._1AtVbE", "div._13oc-S", "div._2kHMtA", "div.s1Q9rs", "div.bhgxx2"},
				Name:          []string{"div._4rR01T", "a.s1Q9rs", "div.IRpwTa", "div._2WkVRV", "a[title]@title", "div[title]@title"},
				Price:         []string{"div._30jeq3", "div._1_WHN1", "div._3tbKJL", "div._25b18c"},
				OriginalPrice: []string{"div._3I9_wc", "div._27UcVY", "div._3auQ3N"},
				Rating:        []string{"div._3LWZlK", "div._3n8db4"},
				Reviews:       []string{"span._2_R_DZ", "span._13vcmD"},
				Image:         []string{"img._396cs4@src", "img._2r_T1I@src", `img[src*="rukminim"]@src`},
				Link:          []string{"a._1fQZEK@href", "a.s1Q9rs@href", "a.IRpwTa@href", `a[href*="/p/"]@href`},
			},
		},
		Detail: DetailSelectors{
			Name:          []XPathRule{{Expr: "//span[contains(@class,'VU-ZEz')]"}, {Expr: "//span[@class='B_NuCI']"}, {Expr: "//h1[contains(@class,'yhB1nd')]"}},
			Price:         []XPathRule{{Expr: "//div[contains(@class,'Nx9bqj')]"}, {Expr: "//div[contains(@class,'_30jeq3')]"}},
			OriginalPrice: []XPathRule{{Expr: "//div[contains(@class,'yRaY8j')]"}, {Expr: "//div[contains(@class,'_3I9_wc')]"}},
			Rating:        []XPathRule{{Expr: "//div[contains(@class,'XQDdHH')]"}, {Expr: "//div[@class='_3LWZlK']"}},
			Reviews:       []XPathRule{{Expr: "//span[contains(@class,'Wphh3N')]"}, {Expr: "//span[@class='_2_R_DZ']"}},
			Images:        []XPathRule{{Expr: "//img[contains(@class,'DByuf4')]", Attr: "src"}, {Expr: "//img[contains(@class,'_396cs4')]", Attr: "src"}},
			Delivery:      []XPathRule{{Expr: "//div[contains(@class,'_2Tpdn3')]"}},
		},
		IDExtractor: func(link string) (string, error) {
			if pid, err := helpers.QueryParam(link, "pid"); err == nil {
				return pid, nil
			}
			return helpers.PathSegmentAfter(link, "p")
		},
		DeliveryTime: "3-5 days",
	}
}
