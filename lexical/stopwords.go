package lexical

import "strings"

var stopWords = map[string]map[string]struct{}{
	"Danish":     set("og i jeg det at en den til er som på de med han af for ikke der var mig sig men et har om vi min havde ham hun nu over da fra du ud sin dem os op man"),
	"Dutch":      set("de en van ik te dat die in een hij het niet zijn is was op aan met als voor had er maar om hem dan zou of wat mijn men dit zo door over ze zich bij ook tot je"),
	"English":    set("a an and are as at be but by for if in into is it no not of on or such that the their then there these they this to was will with"),
	"Finnish":    set("olla olen olet on olemme olette ovat ja ei se että hän mutta kun niin jos vaan myös tai kuin sekä"),
	"French":     set("au aux avec ce ces dans de des du elle en et eux il je la le les leur lui ma mais me même mes moi mon ne nos notre nous on ou par pas pour qu que qui sa se ses son sur ta te tes toi ton tu un une vos votre vous"),
	"German":     set("aber alle als also am an auch auf aus bei bin bis das dass dem den der des die doch du ein eine einem einen einer eines er es für hat ich ihr im in ist ja kein man mit nach nicht noch nur oder sich sie sind so um und uns von vor war was wie wir zu zum zur"),
	"Hungarian":  set("a az egy be ki le fel meg el át rá ide oda szét és hogy nem is de ha mint csak már még vagy"),
	"Italian":    set("ad al allo ai agli all agl alla alle con col coi da dal dallo dai dagli dall dagl dalla dalle di del dello dei degli dell degl della delle in nel nello nei negli nell negl nella nelle su sul sullo sui sugli sull sugl sulla sulle per tra contro io tu lui lei noi voi loro il lo la i gli le un uno una e ed non che è"),
	"Norwegian":  set("og i jeg det at en et den til er som på de med han av ikke der så var meg seg men ett har om vi min mitt ha hadde hun nå over da ved fra du ut sin dem oss opp man"),
	"Portuguese": set("de a o que e do da em um para com não uma os no se na por mais as dos como mas ao ele das à seu sua ou quando muito nos já eu também só pelo pela até isso ela entre"),
	"Romanian":   set("a acea aceasta această aceea acei aceia acel acela acele acelea acest acesta aceste acestea acestei acestia acestui aceşti aceştia al ale am ar are aş asta au avea ca care ce cu da dar de din după e ea ei el este eu fi la le lor mai mi nu o pe pentru sa să se si şi un una unei unui"),
	"Russian":    set("и в во не что он на я с со как а то все она так его но да ты к у же вы за бы по только ее мне было вот от меня еще нет о из ему теперь когда даже ну"),
	"Spanish":    set("de la que el en y a los del se las por un para con no una su al lo como más pero sus le ya o este sí porque esta entre cuando muy sin sobre también me hasta hay donde quien desde todo nos durante"),
	"Swedish":    set("och det att i en jag hon som han på den med var sig för så till är men ett om hade de av icke mig du henne då sin nu har inte hans honom skulle hennes där min man ej vid kunde något från ut när efter upp vi dem vara"),
	"Turkish":    set("acaba ama aslında az bazı belki biri birkaç birşey biz bu çok çünkü da daha de defa diye eğer en gibi hem hep hepsi her hiç için ile ise kez ki kim mı mu mü nasıl ne neden nerde nerede nereye niçin niye o sanki şey siz şu tüm ve veya ya yani"),
}

func set(words string) map[string]struct{} {
	m := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		m[w] = struct{}{}
	}
	return m
}
