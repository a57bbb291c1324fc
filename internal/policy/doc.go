// Package policy отвечает на вопрос "допустим ли переход статуса A → B".
//
// Таблица переходов зашита в пакет; потребители (Lifecycle Engine)
// консультируются с policy перед любой мутацией статуса и не применяют
// отклонённые переходы.
package policy
