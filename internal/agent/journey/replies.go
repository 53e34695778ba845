package journey

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/dustin/go-humanize"
)

func money(v float64, currency string) string {
	if currency == "THB" || currency == "" {
		return "฿" + humanize.Commaf(v)
	}
	return humanize.Commaf(v) + " " + currency
}

func pick(lang, th, en string) string {
	if lang == "th" {
		return th
	}
	return en
}

func apology(lang string) string {
	return pick(lang,
		"ขออภัยค่ะ ระบบขัดข้องชั่วคราว กำลังส่งเรื่องให้เจ้าหน้าที่ช่วยดูแลนะคะ",
		"Sorry, something went wrong on our side. I'm asking a member of our team to help.")
}

func shortlistText(lang string, items []model.PresentedProduct, currency string) string {
	var b strings.Builder
	for i, p := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s - %s", p.Position, p.Name, money(p.Price, currency))
	}
	b.WriteString("\n\n")
	b.WriteString(pick(lang,
		fmt.Sprintf("พิมพ์หมายเลข 1-%d เพื่อดูรายละเอียดได้เลยค่ะ", len(items)),
		fmt.Sprintf("Reply with a number from 1 to %d to see the details.", len(items))))
	return b.String()
}

func catalogLinkText(lang, url string) string {
	return pick(lang, "ดูสินค้าทั้งหมดได้ที่ "+url, "You can also browse the full catalog here: "+url)
}

func noResultsText(lang, query string) string {
	return pick(lang,
		fmt.Sprintf("ไม่พบสินค้าสำหรับ \"%s\" ค่ะ ลองใช้คำค้นหาอื่นได้ไหมคะ", query),
		fmt.Sprintf("I couldn't find anything for \"%s\". Could you try different words?", query))
}

func searchUnavailableText(lang string) string {
	return pick(lang, "ขออภัยค่ะ ตอนนี้ค้นหาสินค้าไม่ได้ กรุณาลองใหม่อีกครั้งนะคะ",
		"Sorry, I can't search the catalog right now. Please try again in a moment.")
}

func selectionRangeText(lang string, n int) string {
	return pick(lang,
		fmt.Sprintf("กรุณาพิมพ์หมายเลขระหว่าง 1 ถึง %d ค่ะ", n),
		fmt.Sprintf("Please reply with a number between 1 and %d.", n))
}

func rejectionText(lang string) string {
	return pick(lang, "ได้เลยค่ะ บอกเพิ่มเติมได้ไหมคะว่ากำลังมองหาแบบไหน",
		"No problem. Tell me a bit more about what you're looking for.")
}

func productText(lang string, p model.Product, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s", p.Name, money(p.Price, currency))
	if p.Description != "" {
		b.WriteString("\n" + p.Description)
	}
	for _, v := range p.Variants {
		fmt.Fprintf(&b, "\n%s: %s", v.Name, strings.Join(v.Options, ", "))
	}
	if p.InStock() {
		b.WriteString("\n" + pick(lang, fmt.Sprintf("มีสินค้า %d ชิ้น", p.Stock), fmt.Sprintf("%d in stock", p.Stock)))
	}
	return b.String()
}

func orderPromptText(lang string, p model.Product) string {
	if len(p.Variants) == 0 {
		return pick(lang, "ต้องการสั่งกี่ชิ้นคะ", "How many would you like to order?")
	}
	names := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		names = append(names, v.Name)
	}
	return pick(lang,
		fmt.Sprintf("ต้องการสั่งกี่ชิ้น และเลือก %s แบบไหนคะ", strings.Join(names, ", ")),
		fmt.Sprintf("How many would you like, and which %s?", strings.Join(names, " and ")))
}

func outOfStockText(lang, name string) string {
	return pick(lang,
		fmt.Sprintf("ขออภัยค่ะ %s หมดชั่วคราว เลือกสินค้าอื่นจากรายการได้เลยค่ะ", name),
		fmt.Sprintf("Sorry, the %s is out of stock right now. Please pick another item from the list.", name))
}

func detailsUnavailableText(lang string) string {
	return pick(lang, "ขออภัยค่ะ ดึงรายละเอียดสินค้าไม่ได้ กรุณาลองอีกครั้งนะคะ",
		"Sorry, I couldn't load that product. Please try again.")
}

func variantsText(sel map[string]string) string {
	if len(sel) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, sel[k])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func addedText(lang string, name string, item model.CartItem) string {
	return pick(lang,
		fmt.Sprintf("เพิ่ม %s%s จำนวน %d ชิ้นลงตะกร้าแล้วค่ะ", name, variantsText(item.VariantSelection), item.Quantity),
		fmt.Sprintf("Added %d x %s%s to your cart.", item.Quantity, name, variantsText(item.VariantSelection)))
}

func orderFailedText(lang, code string) string {
	if code == model.CodeInsufficientStock {
		return pick(lang, "ขออภัยค่ะ สินค้าในตะกร้ามีไม่พอ กรุณาลดจำนวนหรือเลือกสินค้าอื่นนะคะ",
			"Sorry, there isn't enough stock for your cart. Please lower the quantity or choose another item.")
	}
	return pick(lang, "ขออภัยค่ะ สร้างคำสั่งซื้อไม่สำเร็จ ตอบกลับมาอีกครั้งเพื่อลองใหม่ได้เลยค่ะ",
		"Sorry, I couldn't create your order. Reply again to retry.")
}

func orderTotalText(lang string, orderID string, totals model.OrderTotals, offer *model.Offer) string {
	ref := shortRef(orderID)
	text := pick(lang,
		fmt.Sprintf("คำสั่งซื้อ %s ยอดรวม %s", ref, money(totals.Total, totals.Currency)),
		fmt.Sprintf("Order %s total: %s", ref, money(totals.Total, totals.Currency)))
	if offer != nil && totals.Discount > 0 {
		text += pick(lang,
			fmt.Sprintf(" (ส่วนลด %s จากโค้ด %s)", money(totals.Discount, totals.Currency), offer.Code),
			fmt.Sprintf(" (you saved %s with %s)", money(totals.Discount, totals.Currency), offer.Code))
	}
	return text
}

func shortRef(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

func paymentLinkText(lang, url string) string {
	return pick(lang, "ชำระเงินได้ที่ลิงก์นี้ค่ะ: "+url, "You can pay here: "+url)
}

func paymentUnavailableText(lang string) string {
	return pick(lang, "ขออภัยค่ะ สร้างลิงก์ชำระเงินไม่สำเร็จ ตอบกลับมาเพื่อลองใหม่ได้เลยค่ะ",
		"Sorry, I couldn't create the payment link. Reply again to retry.")
}

func noPendingPaymentText(lang string) string {
	return pick(lang, "ยังไม่มีรายการที่รอชำระเงินค่ะ สนใจสินค้าอะไรบอกได้เลยนะคะ",
		"There's no payment waiting for you. Let me know what you'd like to buy.")
}

func paymentPendingText(lang, url string) string {
	return pick(lang, "ยังไม่ได้รับการชำระเงินค่ะ ชำระได้ที่ "+url,
		"We haven't received your payment yet. You can pay here: "+url)
}

func paymentConfirmedText(lang string) string {
	return pick(lang, "ได้รับการชำระเงินแล้ว ขอบคุณค่ะ เราจะจัดส่งโดยเร็วที่สุดนะคะ",
		"Payment received, thank you! We'll ship your order shortly.")
}

func paymentFailedText(lang, url string) string {
	return pick(lang, "การชำระเงินไม่สำเร็จค่ะ ลองใหม่ได้ที่ "+url,
		"Your payment didn't go through. You can try again here: "+url)
}

func paymentCheckFailedText(lang string) string {
	return pick(lang, "ขออภัยค่ะ ตรวจสอบสถานะการชำระเงินไม่ได้ กรุณาลองใหม่อีกครั้งนะคะ",
		"Sorry, I couldn't check your payment. Please try again in a moment.")
}

func askOrderRefText(lang string) string {
	return pick(lang, "รบกวนส่งหมายเลขคำสั่งซื้อให้หน่อยค่ะ", "Could you send me your order number?")
}

func orderNotFoundText(lang string) string {
	return pick(lang, "ไม่พบคำสั่งซื้อนี้ค่ะ รบกวนตรวจสอบหมายเลขอีกครั้งนะคะ",
		"I couldn't find that order. Could you double-check the order number?")
}

func orderLookupFailedText(lang string) string {
	return pick(lang, "ขออภัยค่ะ ตรวจสอบคำสั่งซื้อไม่ได้ในตอนนี้", "Sorry, I can't look up orders right now.")
}

func orderStatusText(lang string, o model.Order) string {
	status := string(o.Status)
	return pick(lang,
		fmt.Sprintf("คำสั่งซื้อ %s สถานะ: %s ยอดรวม %s", shortRef(o.ID), status, money(o.Totals.Total, o.Totals.Currency)),
		fmt.Sprintf("Order %s is %s. Total: %s", shortRef(o.ID), status, money(o.Totals.Total, o.Totals.Currency)))
}

func kbNoAnswerText(lang string) string {
	return pick(lang, "ขออภัยค่ะ ยังไม่มีข้อมูลเรื่องนี้", "Sorry, I don't have an answer to that yet.")
}

func kbUnavailableText(lang string) string {
	return pick(lang, "ขออภัยค่ะ ตอนนี้ค้นหาข้อมูลไม่ได้", "Sorry, I can't look that up right now.")
}

func kbAnswerText(a model.Article) string {
	return a.Title + ": " + a.Body
}

func optOutConfirmText(lang string) string {
	return pick(lang, "ยืนยันยกเลิกการรับข่าวสารใช่ไหมคะ (ใช่/ไม่)",
		"Do you want to stop receiving marketing messages? Reply yes or no.")
}

func optOutDoneText(lang string) string {
	return pick(lang, "ยกเลิกการรับข่าวสารเรียบร้อยแล้วค่ะ", "Done. You won't receive marketing messages from us anymore.")
}

func optOutKeptText(lang string) string {
	return pick(lang, "รับทราบค่ะ คุณยังรับข่าวสารได้ตามปกติ", "Got it, nothing has changed.")
}

func optOutFailedText(lang string) string {
	return pick(lang, "ขออภัยค่ะ บันทึกการตั้งค่าไม่สำเร็จ กรุณาลองใหม่อีกครั้ง",
		"Sorry, I couldn't save your preference. Please try again.")
}
