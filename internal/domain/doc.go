// Package domain содержит доменную модель Waferline.
//
// Корень агрегата — ExperimentGroup: партия экспериментов, отправляемая
// на постановку вместе. Эксперимент состоит из упорядоченных stages,
// stage — вариантного типа (Class с вложенными conditions либо
// одностатусные Olb/Ppv/Maestro).
//
// Все мутации статусов проходят через Lifecycle Engine или bulk-операции
// (internal/lifecycle); агрегат пишется в хранилище целиком.
package domain
